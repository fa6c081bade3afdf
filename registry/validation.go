package registry

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the longest accepted table name
const MaxNameLength = 100

var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateName checks a table name.
// Names must be 1-100 characters, start with a letter or underscore and
// continue with letters, digits, underscores or hyphens.
func ValidateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name length %d exceeds maximum of %d characters", len(name), MaxNameLength)
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("must match pattern %s", validName.String())
	}
	return nil
}

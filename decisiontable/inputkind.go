package decisiontable

import (
	"regexp"
	"strconv"
	"strings"
)

// InputKind is the kind of value a template column expects
type InputKind string

const (
	InputText    InputKind = "text"
	InputNumber  InputKind = "number"
	InputBoolean InputKind = "boolean"
)

var (
	quotedParam     = regexp.MustCompile(`["']\s*\$param\s*["']`)
	equalityParam   = regexp.MustCompile(`==\s*\$param`)
	comparisonParam = regexp.MustCompile(`(?:[<>]=?|[=!]=)[^"']*\$param`)
)

// InferInputKind classifies a template by the operator applied to $param.
// The placeholder is matched case-sensitively, as Validate does.
func InferInputKind(template string) InputKind {
	if !strings.Contains(template, ParamPlaceholder) || quotedParam.MatchString(template) {
		return InputText
	}
	lower := strings.ToLower(template)
	if equalityParam.MatchString(template) && (strings.Contains(lower, "true") || strings.Contains(lower, "false")) {
		return InputBoolean
	}
	if comparisonParam.MatchString(template) {
		return InputNumber
	}
	return InputText
}

// Accepts reports whether value is acceptable input for the kind
func (k InputKind) Accepts(value any) bool {
	switch k {
	case InputNumber:
		_, ok := AsNumber(value)
		return ok
	case InputBoolean:
		_, ok := AsBool(value)
		return ok
	default:
		return true
	}
}

// AsNumber converts numeric values and numeric strings to float64
func AsNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsBool converts bools and the strings "true"/"false" in any case
func AsBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// ParseInput converts raw text entered for a column into a typed value.
// Empty input clears the cell.
func ParseInput(kind InputKind, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	switch kind {
	case InputNumber:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case InputBoolean:
		if b, ok := AsBool(raw); ok {
			return b
		}
	}
	return raw
}

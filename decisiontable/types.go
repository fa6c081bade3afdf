package decisiontable

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnType identifies the role of a column in a decision table
type ColumnType string

const (
	ColumnName      ColumnType = "NAME"
	ColumnCondition ColumnType = "CONDITION"
	ColumnAction    ColumnType = "ACTION"
)

const (
	DefaultRuleSet       = "DefaultRuleSet"
	DefaultRuleTableName = "DiscountRules"

	// ParamPlaceholder is substituted with a cell value when a template is expanded
	ParamPlaceholder = "$param"
)

// ParseColumnType converts a header cell to a ColumnType, ignoring case and surrounding space
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(strings.ToUpper(strings.TrimSpace(s))) {
	case ColumnName:
		return ColumnName, nil
	case ColumnCondition:
		return ColumnCondition, nil
	case ColumnAction:
		return ColumnAction, nil
	default:
		return "", fmt.Errorf("unknown column type %q (must be one of: NAME, CONDITION, ACTION)", s)
	}
}

// UnmarshalJSON accepts column types in any case
func (c *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Templated reports whether cells of this column are expanded through a template
func (c ColumnType) Templated() bool {
	return c == ColumnCondition || c == ColumnAction
}

// Meta describes the rule set a decision table belongs to
type Meta struct {
	RuleSet       string   `json:"ruleSet"`
	ImportTypes   []string `json:"importTypes"`
	RuleTableName string   `json:"ruleTableName"`
}

// DefaultMeta returns the meta used when a workbook carries none
func DefaultMeta() Meta {
	return Meta{
		RuleSet:       DefaultRuleSet,
		ImportTypes:   []string{},
		RuleTableName: DefaultRuleTableName,
	}
}

// TemplateCell is the expression pattern of a CONDITION or ACTION column.
// ColumnIndex is the header index, so the NAME column is 0.
type TemplateCell struct {
	ColumnIndex int        `json:"columnIndex"`
	Type        ColumnType `json:"type"`
	Template    string     `json:"template"`
}

// TableRow is one rule. Values[i] holds the cell of header column i+1.
type TableRow struct {
	Name   string `json:"name"`
	Values []any  `json:"values"`
}

// DecisionTable is a rule set expressed as rows over typed columns
type DecisionTable struct {
	Meta      Meta           `json:"meta"`
	Headers   []ColumnType   `json:"headers"`
	Templates []TemplateCell `json:"templates"`
	Rows      []TableRow     `json:"rows"`
}

// MetaBlock holds the raw rows that precede the RuleTable marker in a workbook
type MetaBlock struct {
	Rows [][]any `json:"rows"`
}

// Empty reports whether the block has no rows
func (m MetaBlock) Empty() bool {
	return len(m.Rows) == 0
}

// ValidationError is a problem found in a table. Row and Col are nil for
// table-level errors; Col is a header index.
type ValidationError struct {
	Row     *int   `json:"row,omitempty"`
	Col     *int   `json:"col,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	switch {
	case e.Row != nil && e.Col != nil:
		return fmt.Sprintf("row %d, column %d: %s", *e.Row, *e.Col, e.Message)
	case e.Row != nil:
		return fmt.Sprintf("row %d: %s", *e.Row, e.Message)
	case e.Col != nil:
		return fmt.Sprintf("column %d: %s", *e.Col, e.Message)
	default:
		return e.Message
	}
}

// ValidationResult is the pass/fail outcome of validating a table
type ValidationResult struct {
	OK     bool              `json:"ok"`
	Errors []ValidationError `json:"errors"`
}

// NewValidationResult builds a result whose OK flag agrees with errs
func NewValidationResult(errs []ValidationError) ValidationResult {
	if errs == nil {
		errs = []ValidationError{}
	}
	return ValidationResult{OK: len(errs) == 0, Errors: errs}
}

// TableError returns a validation error with no row or column
func TableError(format string, args ...any) ValidationError {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ColumnError returns a validation error scoped to a column
func ColumnError(col int, format string, args ...any) ValidationError {
	return ValidationError{Col: &col, Message: fmt.Sprintf(format, args...)}
}

// RowError returns a validation error scoped to a row
func RowError(row int, format string, args ...any) ValidationError {
	return ValidationError{Row: &row, Message: fmt.Sprintf(format, args...)}
}

// CellError returns a validation error scoped to a single cell
func CellError(row, col int, format string, args ...any) ValidationError {
	return ValidationError{Row: &row, Col: &col, Message: fmt.Sprintf(format, args...)}
}

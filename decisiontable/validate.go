package decisiontable

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
)

// Validator checks that a decision table is well formed
type Validator struct {
	env *cel.Env
}

// ValidatorOption configures a Validator
type ValidatorOption func(*Validator) error

// WithStrictExpressions makes the validator expand every filled cell into
// its template and reject expressions that do not parse
func WithStrictExpressions() ValidatorOption {
	return func(v *Validator) error {
		env, err := cel.NewEnv()
		if err != nil {
			return fmt.Errorf("failed to create CEL environment: %w", err)
		}
		v.env = env
		return nil
	}
}

// NewValidator creates a validator
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Strict reports whether expression parsing is enabled
func (v *Validator) Strict() bool {
	return v.env != nil
}

// Validate returns every problem found in the table. Errors are ordered
// table-level first, then templates, then rows in row/column order.
func (v *Validator) Validate(table *DecisionTable) ValidationResult {
	errs := []ValidationError{}

	conditions, actions := 0, 0
	for _, h := range table.Headers {
		switch h {
		case ColumnCondition:
			conditions++
		case ColumnAction:
			actions++
		}
	}
	if conditions == 0 {
		errs = append(errs, TableError("At least one CONDITION column is required"))
	}
	if actions == 0 {
		errs = append(errs, TableError("At least one ACTION column is required"))
	}

	errs = append(errs, v.validateTemplates(table)...)

	for i, row := range table.Rows {
		errs = append(errs, v.validateRow(table, i, row)...)
	}

	return NewValidationResult(errs)
}

func (v *Validator) validateTemplates(table *DecisionTable) []ValidationError {
	var errs []ValidationError
	for _, tc := range table.Templates {
		if tc.ColumnIndex < 0 || tc.ColumnIndex >= len(table.Headers) {
			errs = append(errs, ColumnError(tc.ColumnIndex,
				"Template refers to column %d but table has %d columns", tc.ColumnIndex, len(table.Headers)))
			continue
		}
		if header := table.Headers[tc.ColumnIndex]; header != tc.Type {
			errs = append(errs, ColumnError(tc.ColumnIndex,
				"Template type %s does not match column type %s", tc.Type, header))
		}
		if tc.Type.Templated() && !strings.Contains(tc.Template, ParamPlaceholder) {
			errs = append(errs, ColumnError(tc.ColumnIndex,
				"Template for %s column must contain '%s'", tc.Type, ParamPlaceholder))
		}
	}
	return errs
}

func (v *Validator) validateRow(table *DecisionTable, rowIndex int, row TableRow) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(row.Name) == "" {
		errs = append(errs, RowError(rowIndex, "Rule name is required"))
	}
	if want := table.ValueCount(); len(row.Values) > want {
		errs = append(errs, RowError(rowIndex, "Row has %d values but table has %d columns", len(row.Values), want))
	}

	for i, value := range row.Values {
		col := i + 1
		if col >= len(table.Headers) || value == nil {
			continue
		}
		tc, ok := table.TemplateFor(col)
		if !ok {
			continue
		}

		if kind := InferInputKind(tc.Template); !kind.Accepts(value) {
			if kind == InputBoolean {
				errs = append(errs, CellError(rowIndex, col, "Boolean value (true/false) expected for template: %s", tc.Template))
			} else {
				errs = append(errs, CellError(rowIndex, col, "Numeric value expected for template: %s", tc.Template))
			}
			continue
		}

		if v.env != nil && tc.Type.Templated() {
			if err := v.parseExpression(Expand(tc.Template, value)); err != nil {
				errs = append(errs, CellError(rowIndex, col, "Expression does not parse: %v", err))
			}
		}
	}
	return errs
}

var boundVariable = regexp.MustCompile(`\$([A-Za-z_])`)

func (v *Validator) parseExpression(expr string) error {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimSuffix(expr, ";")
	// Bound variables such as $order are plain identifiers to the parser
	expr = boundVariable.ReplaceAllString(expr, "$1")

	_, issues := v.env.Parse(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

// Expand substitutes value for every $param in template
func Expand(template string, value any) string {
	return strings.ReplaceAll(template, ParamPlaceholder, FormatValue(value))
}

// FormatValue renders a cell value the way it appears in an expanded template
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

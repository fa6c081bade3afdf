package decisiontable

import (
	"errors"
	"fmt"
)

var (
	ErrRowOutOfRange    = errors.New("row index out of range")
	ErrColumnOutOfRange = errors.New("column index out of range")
)

// ValueCount is the number of values each row carries (every column but NAME)
func (t *DecisionTable) ValueCount() int {
	if len(t.Headers) == 0 {
		return 0
	}
	return len(t.Headers) - 1
}

// AddRow appends an empty rule named after its position and returns its index
func (t *DecisionTable) AddRow() int {
	row := TableRow{
		Name:   fmt.Sprintf("Rule %d", len(t.Rows)+1),
		Values: make([]any, t.ValueCount()),
	}
	t.Rows = append(t.Rows, row)
	return len(t.Rows) - 1
}

// CloneRow inserts a copy of row i directly after it and returns the copy's index
func (t *DecisionTable) CloneRow(i int) (int, error) {
	if err := t.checkRow(i); err != nil {
		return 0, err
	}

	original := t.Rows[i]
	clone := TableRow{
		Name:   original.Name + " (Copy)",
		Values: cloneValues(original.Values),
	}

	t.Rows = append(t.Rows, TableRow{})
	copy(t.Rows[i+2:], t.Rows[i+1:])
	t.Rows[i+1] = clone
	return i + 1, nil
}

// DeleteRow removes row i
func (t *DecisionTable) DeleteRow(i int) error {
	if err := t.checkRow(i); err != nil {
		return err
	}
	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
	return nil
}

// RenameRow sets the rule name of row i
func (t *DecisionTable) RenameRow(i int, name string) error {
	if err := t.checkRow(i); err != nil {
		return err
	}
	t.Rows[i].Name = name
	return nil
}

// SetCell stores value in header column col of row i. Column 0 is the NAME
// column and must be set with RenameRow.
func (t *DecisionTable) SetCell(i, col int, value any) error {
	if err := t.checkRow(i); err != nil {
		return err
	}
	if col < 1 || col >= len(t.Headers) {
		return fmt.Errorf("%w: %d (table has %d columns)", ErrColumnOutOfRange, col, len(t.Headers))
	}

	row := &t.Rows[i]
	// Short rows are padded so the value lands on its column
	for len(row.Values) < t.ValueCount() {
		row.Values = append(row.Values, nil)
	}
	row.Values[col-1] = value
	return nil
}

// Cell returns the value at header column col of row i
func (t *DecisionTable) Cell(i, col int) (any, error) {
	if err := t.checkRow(i); err != nil {
		return nil, err
	}
	if col == 0 {
		return t.Rows[i].Name, nil
	}
	if col < 0 || col >= len(t.Headers) {
		return nil, fmt.Errorf("%w: %d (table has %d columns)", ErrColumnOutOfRange, col, len(t.Headers))
	}
	if col-1 >= len(t.Rows[i].Values) {
		return nil, nil
	}
	return t.Rows[i].Values[col-1], nil
}

// DisplayColumns lists the column keys an editor grid renders
func (t *DecisionTable) DisplayColumns() []string {
	cols := make([]string, 0, len(t.Headers)+1)
	cols = append(cols, "actions")
	for i := range t.Headers {
		cols = append(cols, fmt.Sprintf("col_%d", i))
	}
	return cols
}

// TemplateFor returns the template of header column col, if any
func (t *DecisionTable) TemplateFor(col int) (TemplateCell, bool) {
	for _, tc := range t.Templates {
		if tc.ColumnIndex == col {
			return tc, true
		}
	}
	return TemplateCell{}, false
}

// InputKind returns how values of header column col should be entered
func (t *DecisionTable) InputKind(col int) InputKind {
	tc, ok := t.TemplateFor(col)
	if !ok {
		return InputText
	}
	return InferInputKind(tc.Template)
}

// Clone returns a deep copy of the table
func (t *DecisionTable) Clone() *DecisionTable {
	out := &DecisionTable{
		Meta: Meta{
			RuleSet:       t.Meta.RuleSet,
			ImportTypes:   make([]string, len(t.Meta.ImportTypes)),
			RuleTableName: t.Meta.RuleTableName,
		},
		Headers:   append([]ColumnType(nil), t.Headers...),
		Templates: append([]TemplateCell(nil), t.Templates...),
		Rows:      make([]TableRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = TableRow{Name: r.Name, Values: cloneValues(r.Values)}
	}
	copy(out.Meta.ImportTypes, t.Meta.ImportTypes)
	return out
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	copy(out, values)
	return out
}

func (t *DecisionTable) checkRow(i int) error {
	if i < 0 || i >= len(t.Rows) {
		return fmt.Errorf("%w: %d (table has %d rows)", ErrRowOutOfRange, i, len(t.Rows))
	}
	return nil
}

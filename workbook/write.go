package workbook

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

// MetaFromBlock extracts rule set and import declarations from meta rows
func MetaFromBlock(block decisiontable.MetaBlock) decisiontable.Meta {
	meta := decisiontable.DefaultMeta()
	for _, row := range block.Rows {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		key := strings.ToLower(toString(row[0]))
		var value string
		if len(row) > 1 && row[1] != nil {
			value = toString(row[1])
		}

		switch {
		case strings.Contains(key, "ruleset"):
			if value != "" {
				meta.RuleSet = value
			}
		case strings.Contains(key, "import"):
			if value != "" {
				meta.ImportTypes = append(meta.ImportTypes, value)
			}
		}
	}
	return meta
}

// BlockFromMeta renders meta as the rows written above the RuleTable marker
func BlockFromMeta(meta decisiontable.Meta) decisiontable.MetaBlock {
	block := decisiontable.MetaBlock{Rows: [][]any{}}
	if meta.RuleSet != "" {
		block.Rows = append(block.Rows, []any{"RuleSet", meta.RuleSet})
	}
	for _, imp := range meta.ImportTypes {
		block.Rows = append(block.Rows, []any{"Import", imp})
	}
	return block
}

// WriteFile writes table to path, replacing any existing file
func WriteFile(path string, table *decisiontable.DecisionTable, meta decisiontable.MetaBlock) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(out, table, meta); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Write encodes table as an xlsx workbook. When meta is empty the meta
// rows are generated from table.Meta.
func Write(w io.Writer, table *decisiontable.DecisionTable, meta decisiontable.MetaBlock) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if meta.Empty() {
		meta = BlockFromMeta(table.Meta)
	}

	row := 1
	for _, metaRow := range meta.Rows {
		if err := setRow(f, row, metaRow); err != nil {
			return err
		}
		row++
	}

	if err := setRow(f, row, []any{RuleTableMarker}); err != nil {
		return err
	}
	row++

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = string(h)
	}
	if err := setRow(f, row, header); err != nil {
		return err
	}
	row++

	for _, tc := range table.Templates {
		if err := setCell(f, tc.ColumnIndex, row, tc.Template); err != nil {
			return err
		}
	}
	row++

	for _, tr := range table.Rows {
		values := make([]any, 0, len(tr.Values)+1)
		values = append(values, tr.Name)
		values = append(values, tr.Values...)
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// setRow writes values starting at column A of the one-based row; nil cells stay blank
func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		if err := setCell(f, col, row, v); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	axis, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, axis, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", axis, err)
	}
	return nil
}

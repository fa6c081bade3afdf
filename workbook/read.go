// Package workbook reads and writes decision tables stored as xlsx workbooks.
//
// A workbook holds the table on its first sheet:
//
//	meta rows        (RuleSet / Import lines, free form)
//	RuleTable        marker row
//	NAME | CONDITION | ACTION ...       header row
//	     | x > $param | y($param) ...   template row
//	name | value      | value     ...   data rows
package workbook

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

const (
	// RuleTableMarker is the first cell of the row that starts the table
	RuleTableMarker = "RuleTable"
	// SheetName is the sheet written by Write
	SheetName = "Rules"
)

var (
	ErrRuleTableNotFound   = errors.New("RuleTable row not found")
	ErrHeaderRowNotFound   = errors.New("header row not found")
	ErrTemplateRowNotFound = errors.New("template row not found")
	ErrNoSheets            = errors.New("workbook has no sheets")
)

// ReadFile reads the decision table stored in the xlsx file at path
func ReadFile(path string) (*decisiontable.DecisionTable, decisiontable.MetaBlock, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, decisiontable.MetaBlock{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	return readFile(f)
}

// Read reads a decision table from an xlsx stream
func Read(r io.Reader) (*decisiontable.DecisionTable, decisiontable.MetaBlock, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, decisiontable.MetaBlock{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readFile(f)
}

// sheetReader gives typed access to the cells of one sheet
type sheetReader struct {
	f     *excelize.File
	sheet string
	rows  [][]string
}

func readFile(f *excelize.File) (*decisiontable.DecisionTable, decisiontable.MetaBlock, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, decisiontable.MetaBlock{}, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, decisiontable.MetaBlock{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	s := &sheetReader{f: f, sheet: sheets[0], rows: rows}

	marker := s.findRuleTableRow()
	if marker == -1 {
		return nil, decisiontable.MetaBlock{}, ErrRuleTableNotFound
	}

	meta := decisiontable.MetaBlock{Rows: [][]any{}}
	for i := 0; i < marker; i++ {
		values, err := s.rowValues(i)
		if err != nil {
			return nil, decisiontable.MetaBlock{}, err
		}
		meta.Rows = append(meta.Rows, values)
	}

	if marker+1 >= len(rows) {
		return nil, meta, ErrHeaderRowNotFound
	}
	headers, err := parseHeaders(rows[marker+1])
	if err != nil {
		return nil, meta, err
	}

	if marker+2 >= len(rows) {
		return nil, meta, ErrTemplateRowNotFound
	}
	templates := parseTemplates(rows[marker+2], headers)

	tableRows := []decisiontable.TableRow{}
	for i := marker + 3; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		row, err := s.dataRow(i, len(headers))
		if err != nil {
			return nil, meta, err
		}
		tableRows = append(tableRows, row)
	}

	return &decisiontable.DecisionTable{
		Meta:      MetaFromBlock(meta),
		Headers:   headers,
		Templates: templates,
		Rows:      tableRows,
	}, meta, nil
}

func (s *sheetReader) findRuleTableRow() int {
	for i, row := range s.rows {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), RuleTableMarker) {
			return i
		}
	}
	return -1
}

// parseHeaders reads column types up to the first blank header cell
func parseHeaders(row []string) ([]decisiontable.ColumnType, error) {
	headers := []decisiontable.ColumnType{}
	for i, cell := range row {
		if strings.TrimSpace(cell) == "" {
			break
		}
		ct, err := decisiontable.ParseColumnType(cell)
		if err != nil {
			return nil, fmt.Errorf("header column %d: %w", i, err)
		}
		headers = append(headers, ct)
	}
	return headers, nil
}

func parseTemplates(row []string, headers []decisiontable.ColumnType) []decisiontable.TemplateCell {
	templates := []decisiontable.TemplateCell{}
	for i := 0; i < len(headers) && i < len(row); i++ {
		template := row[i]
		if strings.TrimSpace(template) == "" || !headers[i].Templated() {
			continue
		}
		if !strings.Contains(template, decisiontable.ParamPlaceholder) {
			continue
		}
		templates = append(templates, decisiontable.TemplateCell{
			ColumnIndex: i,
			Type:        headers[i],
			Template:    template,
		})
	}
	return templates
}

func (s *sheetReader) dataRow(rowIdx, columns int) (decisiontable.TableRow, error) {
	name, err := s.cellValue(rowIdx, 0)
	if err != nil {
		return decisiontable.TableRow{}, err
	}

	count := columns - 1
	if count < 0 {
		count = 0
	}
	values := make([]any, count)
	for i := 1; i < columns; i++ {
		v, err := s.cellValue(rowIdx, i)
		if err != nil {
			return decisiontable.TableRow{}, err
		}
		values[i-1] = v
	}

	return decisiontable.TableRow{Name: toString(name), Values: values}, nil
}

func (s *sheetReader) rowValues(rowIdx int) ([]any, error) {
	values := make([]any, len(s.rows[rowIdx]))
	for i := range values {
		v, err := s.cellValue(rowIdx, i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// cellValue returns the typed value of a zero-based cell, nil when blank
func (s *sheetReader) cellValue(rowIdx, colIdx int) (any, error) {
	axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return nil, err
	}

	formula, err := s.f.GetCellFormula(s.sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to read formula at %s: %w", axis, err)
	}
	if formula != "" {
		return formula, nil
	}

	cellType, err := s.f.GetCellType(s.sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell type at %s: %w", axis, err)
	}
	raw, err := s.f.GetCellValue(s.sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read cell %s: %w", axis, err)
	}

	switch cellType {
	case excelize.CellTypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return raw, nil
		}
		return b, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw, nil
	}

	if raw == "" {
		return nil, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return numberValue(f), nil
	}
	return raw, nil
}

// numberValue keeps integral numbers as int64
func numberValue(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/workbook"
)

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// readTableFile loads a table from a JSON file or an xlsx workbook
func readTableFile(path string) (*decisiontable.DecisionTable, error) {
	if isWorkbook(path) {
		table, _, err := workbook.ReadFile(path)
		return table, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var table decisiontable.DecisionTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &table, nil
}

// writeTableFile stores a table as JSON or, for .xlsx paths, as a workbook.
// An existing workbook keeps its meta rows.
func writeTableFile(path string, table *decisiontable.DecisionTable) error {
	if isWorkbook(path) {
		var meta decisiontable.MetaBlock
		if _, existing, err := workbook.ReadFile(path); err == nil {
			meta = existing
		}
		return workbook.WriteFile(path, table, meta)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeTableJSON(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTableJSON(w io.Writer, table *decisiontable.DecisionTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	return nil
}

// printErrors writes one line per validation error
func printErrors(w io.Writer, errs []decisiontable.ValidationError) {
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e.Error())
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liamcoop/ruleseditor/editor"
)

// rowsFlags are shared by the rows subcommands
type rowsFlags struct {
	file  string
	row   int
	col   int
	value string
	name  string
}

func newRowsCmd() *cobra.Command {
	flags := &rowsFlags{}

	rowsCmd := &cobra.Command{
		Use:   "rows",
		Short: "Edit the rows of a local table file",
		Long: `Edit the rows of a local table file in place.

Available subcommands:
  add    - Append an empty rule
  clone  - Copy a rule directly below itself
  delete - Remove a rule
  set    - Set one cell, parsed by the column's input kind
  rename - Rename a rule`,
	}
	rowsCmd.PersistentFlags().StringVarP(&flags.file, "file", "f", "", "Table file to edit (.json or .xlsx)")
	rowsCmd.MarkPersistentFlagRequired("file")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Append an empty rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFile(cmd, flags.file, func(s *editor.Session) (string, error) {
				i, err := s.AddRow()
				return fmt.Sprintf("added row %d", i), err
			})
		},
	}

	cloneCmd := &cobra.Command{
		Use:   "clone",
		Short: "Copy a rule directly below itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFile(cmd, flags.file, func(s *editor.Session) (string, error) {
				i, err := s.CloneRow(flags.row)
				return fmt.Sprintf("cloned row %d to row %d", flags.row, i), err
			})
		},
	}
	cloneCmd.Flags().IntVar(&flags.row, "row", 0, "Row index")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFile(cmd, flags.file, func(s *editor.Session) (string, error) {
				return fmt.Sprintf("deleted row %d", flags.row), s.DeleteRow(flags.row)
			})
		},
	}
	deleteCmd.Flags().IntVar(&flags.row, "row", 0, "Row index")
	deleteCmd.MarkFlagRequired("row")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set one cell",
		Long: `Set the value of one cell. The value is parsed by the column's input
kind: numbers for comparison templates, true/false for boolean templates,
text otherwise. An empty value clears the cell.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFile(cmd, flags.file, func(s *editor.Session) (string, error) {
				err := s.SetCellInput(flags.row, flags.col, flags.value)
				return fmt.Sprintf("set row %d column %d", flags.row, flags.col), err
			})
		},
	}
	setCmd.Flags().IntVar(&flags.row, "row", 0, "Row index")
	setCmd.Flags().IntVar(&flags.col, "col", 1, "Header column index (1 is the first column after NAME)")
	setCmd.Flags().StringVar(&flags.value, "value", "", "Cell value")
	setCmd.MarkFlagRequired("row")
	setCmd.MarkFlagRequired("col")

	renameCmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFile(cmd, flags.file, func(s *editor.Session) (string, error) {
				return fmt.Sprintf("renamed row %d", flags.row), s.RenameRow(flags.row, flags.name)
			})
		},
	}
	renameCmd.Flags().IntVar(&flags.row, "row", 0, "Row index")
	renameCmd.Flags().StringVar(&flags.name, "name", "", "New rule name")
	renameCmd.MarkFlagRequired("row")
	renameCmd.MarkFlagRequired("name")

	rowsCmd.AddCommand(addCmd, cloneCmd, deleteCmd, setCmd, renameCmd)
	return rowsCmd
}

// editFile opens path in a local session, applies edit and writes the table back
func editFile(cmd *cobra.Command, path string, edit func(*editor.Session) (string, error)) error {
	table, err := readTableFile(path)
	if err != nil {
		return err
	}

	session := editor.NewSession(nil, nil)
	session.Open(table)

	msg, err := edit(session)
	if err != nil {
		return err
	}
	if err := writeTableFile(path, session.Table()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

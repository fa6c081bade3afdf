package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

func newValidateCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a table without saving it",
		Long: `Validate a local table file with -f, or the server's current table
when no file is given. Exits non-zero when the table has errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()

			session := newSession(cmd, opts)
			if file != "" {
				table, err := readTableFile(file)
				if err != nil {
					return err
				}
				session.Open(table)
			} else if err := session.Load(ctx); err != nil {
				return err
			}

			result, err := session.Validate(ctx)
			if err != nil {
				return err
			}
			return reportResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Table file to validate (.json or .xlsx)")
	return cmd
}

func newSaveCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Validate and save a table file on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTableFile(file)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()

			session := newSession(cmd, opts)
			session.Open(table)

			result, err := session.Save(ctx)
			if err != nil {
				return err
			}
			return reportResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Table file to save (.json or .xlsx)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func reportResult(cmd *cobra.Command, result decisiontable.ValidationResult) error {
	if result.OK {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d errors:\n", len(result.Errors))
	printErrors(cmd.OutOrStdout(), result.Errors)
	return errRejected
}

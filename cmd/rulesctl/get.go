package main

import (
	"github.com/spf13/cobra"
)

func newGetCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch the current table",
		Long: `Fetch the current table from the server and print it as JSON, or
write it to a file with -o.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()

			session := newSession(cmd, opts)
			if err := session.Load(ctx); err != nil {
				return err
			}

			if output == "" {
				return writeTableJSON(cmd.OutOrStdout(), session.Table())
			}
			return writeTableFile(output, session.Table())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the table to this file (.json or .xlsx)")
	return cmd
}

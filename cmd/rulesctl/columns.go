package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newColumnsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Show the columns of a table file",
		Long: `Show each header column of a table file with its type, the input kind
its values are entered as, and its template.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTableFile(file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tID\tTYPE\tINPUT\tTEMPLATE")
			displayed := table.DisplayColumns()
			for i, header := range table.Headers {
				template := ""
				if tc, ok := table.TemplateFor(i); ok {
					template = tc.Template
				}
				input := "-"
				if header.Templated() {
					input = string(table.InputKind(i))
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, displayed[i+1], header, input, template)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Table file (.json or .xlsx)")
	cmd.MarkFlagRequired("file")
	return cmd
}

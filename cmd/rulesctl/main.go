package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/ruleseditor/client"
	"github.com/liamcoop/ruleseditor/editor"
	"github.com/liamcoop/ruleseditor/internal/logger"
)

// errRejected makes the process exit non-zero when the server rejects a table
var errRejected = errors.New("table has validation errors")

// options holds the persistent flags
type options struct {
	server   string
	table    string
	timeout  time.Duration
	logLevel string
}

func defaultServer() string {
	if v := os.Getenv("RULES_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "rulesctl",
		Short: "Edit decision tables on a rules editor server",
		Long: `rulesctl fetches, validates and saves decision tables through the
rules editor HTTP API, and edits table files locally.

Table files are JSON, or xlsx workbooks when the name ends in .xlsx.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			return logger.Setup(cmd.Context(), logger.Options{Level: level, Output: cmd.ErrOrStderr()})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer(), "Server base URL (or set RULES_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&opts.table, "table", "t", "", "Named table (default: the server's default table)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "Log level")

	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newSaveCmd(opts))
	rootCmd.AddCommand(newRowsCmd())
	rootCmd.AddCommand(newColumnsCmd())

	return rootCmd
}

// newSession creates a session against the configured server, printing
// notifications to stderr
func newSession(cmd *cobra.Command, opts *options) *editor.Session {
	clientOpts := []client.Option{}
	if opts.table != "" {
		clientOpts = append(clientOpts, client.WithTable(opts.table))
	}
	c := client.New(opts.server, clientOpts...)
	return editor.NewSession(c, editor.WriterNotifier{W: cmd.ErrOrStderr()})
}

func withTimeout(cmd *cobra.Command, opts *options) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), opts.timeout)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package commands implements CLI command handlers for gitshare.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitshare/pkg/version"
)

const (
	// exitCodeFailure is the exit code for runtime failures.
	exitCodeFailure = 1
	// exitCodeValidationFailure is the exit code for reports that fail validation.
	exitCodeValidationFailure = 2
)

// NewRootCommand creates the gitshare command tree. Without a subcommand the
// root behaves like "gitshare run".
func NewRootCommand() *cobra.Command {
	root := newRunCommand("gitshare [path]")
	root.Short = "Show how much of a Git repository was written by whom"
	root.Long = `gitshare attributes every line of the current snapshot of a Git repository
to the author who wrote it, and reports the share of the selected authors per
file and per directory.

Commands:
  run       Attribute lines and print a report (default)
  mcp       Start the MCP server
  validate  Validate a JSON report
  version   Show version information`
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewRunCommand())
	root.AddCommand(NewMCPCommand())
	root.AddCommand(NewValidateCommand())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if errors.Is(err, ErrInvalidReport) {
		return exitCodeValidationFailure
	}

	return exitCodeFailure
}

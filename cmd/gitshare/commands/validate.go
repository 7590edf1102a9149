package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitshare/pkg/report"
)

// ErrInvalidReport is returned when a report does not match the schema.
var ErrInvalidReport = errors.New("report does not match the schema")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var colorize, nocolor, printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a report written with --format json against the embedded schema.

Examples:
  gitshare validate report.json
  gitshare --format json | gitshare validate -
  gitshare validate --schema
`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(report.Schema())
				if err != nil {
					return fmt.Errorf("write schema: %w", err)
				}

				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("%w: expected a report path or -", ErrInvalidReport)
			}

			setColor(colorize, nocolor)

			return runValidate(cmd.InOrStdin(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "print the report schema and exit")

	return cmd
}

func setColor(colorize, nocolor bool) {
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}
}

func runValidate(stdin io.Reader, out io.Writer, inputPath string) error {
	data, label, err := readInput(stdin, inputPath)
	if err != nil {
		return err
	}

	result, err := report.Validate(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if result.Valid {
		color.New(color.FgGreen).Fprintf(out, "Report is valid (%s)\n", label)

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "Report validation failed (%s)\n", label)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, verr := range result.Errors {
		color.New(color.FgRed).Fprintf(out, "  - %s: %s\n", verr.Field, verr.Description)
	}

	return fmt.Errorf("%w: %d errors", ErrInvalidReport, len(result.Errors))
}

func readInput(stdin io.Reader, inputPath string) (data []byte, label string, err error) {
	if inputPath == "-" {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err = os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}

	return data, inputPath, nil
}

// Package inspect shows how a fuel export would be read.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/fueltrack/cmd/root"
	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/parsererror"
	"fjacquet/fueltrack/internal/validation"

	"github.com/spf13/cobra"
)

const previewRows = 5

// Cmd represents the inspect command
var Cmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the layout detected in a fuel export",
	Long: `Load a fuel export without storing it and print the strategy that read it,
the sheet and header row or encoding and delimiter, the column of each field and
the first rows.

When no strategy succeeds every attempt is listed with its failure.

Example:
  fueltrack inspect -i export.xls`,
	Annotations: map[string]string{root.AnnotationNoStorage: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := root.SharedFlags.Input
		if inputFile == "" && len(args) > 0 {
			inputFile = args[0]
		}
		if inputFile == "" {
			root.Log.Fatal("Input file must be specified with --input")
		}

		if err := validation.InputFile(inputFile); err != nil {
			root.Log.Fatalf("%v", err)
		}
		table, err := root.GetContainer().GetLoader().Load(cmd.Context(), inputFile)
		if err != nil {
			DescribeError(cmd.OutOrStdout(), err)
			root.Log.Fatalf("Cannot read %s", inputFile)
		}
		if err := Describe(cmd.OutOrStdout(), table); err != nil {
			root.Log.WithError(err).Fatalf("Failed to print layout: %v", err)
		}
	},
}

// Describe prints the detected layout of table.
func Describe(w io.Writer, table *loader.Table) error {
	var b strings.Builder
	fmt.Fprintf(&b, "File:     %s\n", table.Source)
	fmt.Fprintf(&b, "Strategy: %s\n", table.Describe())
	fmt.Fprintf(&b, "Rows:     %d", len(table.Rows))
	if table.SkippedLines > 0 {
		fmt.Fprintf(&b, " (%d malformed lines skipped)", table.SkippedLines)
	}
	b.WriteString("\n\nColumns:\n")
	for _, a := range table.Mapping.Assignments() {
		fmt.Fprintf(&b, "  %-20s column %d %q\n", a.Field, a.Column, a.Header)
	}
	if missing := table.Mapping.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, "  missing: %s\n", strings.Join(missing, ", "))
	}

	n := min(previewRows, len(table.Rows))
	if n > 0 {
		b.WriteString("\nFirst rows:\n")
		for _, row := range table.Rows[:n] {
			fmt.Fprintf(&b, "  %s\n", strings.Join(row, " | "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// DescribeError prints the headers found and each failed attempt of a load error.
func DescribeError(w io.Writer, err error) {
	var unparsable *parsererror.UnparsableSourceError
	if !errors.As(err, &unparsable) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Cannot read %s\n", unparsable.FilePath)
	if len(unparsable.Headers) > 0 {
		fmt.Fprintf(w, "Headers found: %s\n", strings.Join(unparsable.Headers, ", "))
	}
	fmt.Fprintf(w, "Required: %s\n", strings.Join(unparsable.Required, ", "))
	for _, attempt := range unparsable.Attempts {
		fmt.Fprintf(w, "  - %v\n", attempt)
	}
}

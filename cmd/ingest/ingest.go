// Package ingest implements the import command. The package is not named import
// because that is a Go keyword.
package ingest

import (
	"fmt"

	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

var (
	label       string
	noReprocess bool
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import one fuel export and rebuild the anomalies",
	Long: `Import a fuel export (xlsx, xls, csv or txt) into the transaction history.

Rows already stored (same timestamp and vehicle) are skipped. When new rows were
inserted the processed transactions and anomalies are rebuilt, unless --no-reprocess
is given.

Example:
  fueltrack import -i export_janvier.xlsx --label "January pumps"`,
	Run: importFunc,
}

func init() {
	Cmd.Flags().StringVar(&label, "label", "", "Batch label (defaults to the file name)")
	Cmd.Flags().BoolVar(&noReprocess, "no-reprocess", false, "Do not rebuild anomalies after the import")
}

func importFunc(cmd *cobra.Command, args []string) {
	inputFile := root.SharedFlags.Input
	if inputFile == "" && len(args) > 0 {
		inputFile = args[0]
	}
	if inputFile == "" {
		root.Log.Fatal("Input file must be specified with --input")
	}

	result, err := common.ImportFile(cmd.Context(), root.GetContainer(), inputFile, label, !noReprocess)
	fmt.Fprintln(cmd.OutOrStdout(), common.FormatResult(inputFile, result))
	if err != nil {
		root.Log.WithError(err).Fatalf("Import failed: %v", err)
	}
}

// Package batch handles batch import of a directory of exports
package batch

import (
	"fmt"

	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Import every export found in a directory",
	Long: `Import every .xls, .xlsx, .csv and .txt file of the input directory, each as its
own batch, then rebuild the anomalies once.

A file that cannot be read is reported and the remaining files are still imported.

Example:
  fueltrack batch -i exports/`,
	Run: batchFunc,
}

func batchFunc(cmd *cobra.Command, args []string) {
	inputDir := root.SharedFlags.Input
	if inputDir == "" {
		root.Log.Fatal("Input directory must be specified with --input")
	}

	results, err := common.ImportDirectory(cmd.Context(), root.GetContainer(), inputDir)
	for _, r := range results {
		fmt.Fprintln(cmd.OutOrStdout(), common.FormatResult(r.Path, r.Result))
	}
	if err != nil {
		root.Log.WithError(err).Fatalf("Error during batch import: %v", err)
	}
}

// Package reprocess rebuilds the derived tables.
package reprocess

import (
	"fmt"

	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the reprocess command
var Cmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Rebuild processed transactions and anomalies from the raw history",
	Run: func(cmd *cobra.Command, args []string) {
		c := root.GetContainer()
		if c == nil || !c.HasStorage() {
			root.Log.Fatal("Storage is not configured")
		}
		report, err := c.GetProcessor().Rebuild(cmd.Context())
		if err != nil {
			root.Log.WithError(err).Fatalf("Reprocess failed: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d vehicles, %d transactions, %d anomalies\n",
			report.Vehicles, report.Processed, report.Anomalies)
	},
}

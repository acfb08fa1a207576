// Package vehicles lists vehicles, optionally with their consumption summary.
package vehicles

import (
	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

var summary bool

// Cmd represents the vehicles command
var Cmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List the vehicles present in the history",
	Long: `List the distinct vehicle identifiers.

With --summary a CSV is written instead, one line per vehicle with its transaction
count, total quantity, distance (sum of positive counter deltas), consumption per 100
counter units and anomaly count.`,
	Run: func(cmd *cobra.Command, args []string) {
		c := root.GetContainer()
		if summary {
			if _, err := common.ExportSummaries(cmd.Context(), c, root.SharedFlags.Output); err != nil {
				root.Log.WithError(err).Fatalf("Failed to export summaries: %v", err)
			}
			return
		}
		if c == nil || !c.HasStorage() {
			root.Log.Fatal("Storage is not configured")
		}
		values, err := c.GetRepository().DistinctVehicles(cmd.Context())
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to list vehicles: %v", err)
		}
		if err := common.PrintLines(cmd.OutOrStdout(), values); err != nil {
			root.Log.WithError(err).Fatalf("Failed to print vehicles: %v", err)
		}
	},
}

func init() {
	Cmd.Flags().BoolVar(&summary, "summary", false, "Write a per-vehicle consumption summary as CSV")
}

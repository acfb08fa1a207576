// Package persons lists the people recorded on transactions.
package persons

import (
	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the persons command
var Cmd = &cobra.Command{
	Use:   "persons",
	Short: "List the distinct persons present in the history",
	Run: func(cmd *cobra.Command, args []string) {
		c := root.GetContainer()
		if c == nil || !c.HasStorage() {
			root.Log.Fatal("Storage is not configured")
		}
		values, err := c.GetRepository().DistinctPersons(cmd.Context())
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to list persons: %v", err)
		}
		if err := common.PrintLines(cmd.OutOrStdout(), values); err != nil {
			root.Log.WithError(err).Fatalf("Failed to print persons: %v", err)
		}
	},
}

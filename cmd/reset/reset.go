// Package reset deletes all stored data.
package reset

import (
	"fmt"

	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

var confirmed bool

// Cmd represents the reset command
var Cmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every batch, transaction and anomaly",
	Run: func(cmd *cobra.Command, args []string) {
		if !confirmed {
			root.Log.Fatal("Refusing to reset without --yes")
		}
		c := root.GetContainer()
		if c == nil || !c.HasStorage() {
			root.Log.Fatal("Storage is not configured")
		}
		if err := c.GetRepository().Reset(cmd.Context()); err != nil {
			root.Log.WithError(err).Fatalf("Reset failed: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All data deleted")
	},
}

func init() {
	Cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")
}

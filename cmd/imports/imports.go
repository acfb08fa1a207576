// Package imports lists and deletes import batches.
package imports

import (
	"fmt"

	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the imports command
var Cmd = &cobra.Command{
	Use:   "imports",
	Short: "Manage import batches",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List import batches, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		c := root.GetContainer()
		if c == nil || !c.HasStorage() {
			root.Log.Fatal("Storage is not configured")
		}
		batches, err := c.GetRepository().ListBatches(cmd.Context())
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to list batches: %v", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "ID\tIMPORTED\tROWS\tFROM\tTO\tSOURCE")
		for _, b := range batches {
			fmt.Fprintln(out, common.FormatBatch(b))
		}
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one batch with its transactions and rebuild the anomalies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		removed, err := common.DeleteBatch(cmd.Context(), root.GetContainer(), args[0])
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to delete batch %s: %v", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted batch %s (%d transactions)\n", args[0], removed)
	},
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(deleteCmd)
}

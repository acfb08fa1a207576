// Package processed exports the processed transactions of one vehicle.
package processed

import (
	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"
	"fjacquet/fueltrack/internal/logging"

	"github.com/spf13/cobra"
)

var vehicle string

// Cmd represents the processed command
var Cmd = &cobra.Command{
	Use:   "processed",
	Short: "Export the processed transactions of a vehicle as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		if vehicle == "" {
			root.Log.Fatal("Vehicle must be specified with --vehicle")
		}
		n, err := common.ExportProcessed(cmd.Context(), root.GetContainer(), vehicle, root.SharedFlags.Output)
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to export processed transactions: %v", err)
		}
		root.Log.Debug("Exported processed transactions",
			logging.F(logging.FieldVehicle, vehicle),
			logging.F(logging.FieldCount, n))
	},
}

func init() {
	Cmd.Flags().StringVar(&vehicle, "vehicle", "", "Vehicle identifier")
}

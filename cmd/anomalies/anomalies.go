// Package anomalies exports detected anomalies as CSV.
package anomalies

import (
	"fjacquet/fueltrack/cmd/common"
	"fjacquet/fueltrack/cmd/root"
	"fjacquet/fueltrack/internal/logging"

	"github.com/spf13/cobra"
)

var from, to string

// Cmd represents the anomalies command
var Cmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Export anomalies as CSV",
	Long: `Export the anomalies whose timestamp lies in [--from, --to] as CSV.

Both bounds are optional and inclusive; a bare --to date covers the whole day.
Without --output the CSV goes to stdout.

Example:
  fueltrack anomalies --from 01/01/2024 --to 31/01/2024 -o janvier.csv`,
	Run: func(cmd *cobra.Command, args []string) {
		c := root.GetContainer()
		lo, hi, err := common.ParseRange(from, to, root.GetConfig().Ingest.DayFirst)
		if err != nil {
			root.Log.Fatalf("%v", err)
		}
		n, err := common.ExportAnomalies(cmd.Context(), c, lo, hi, root.SharedFlags.Output)
		if err != nil {
			root.Log.WithError(err).Fatalf("Failed to export anomalies: %v", err)
		}
		root.Log.Debug("Exported anomalies", logging.F(logging.FieldCount, n))
	},
}

func init() {
	Cmd.Flags().StringVar(&from, "from", "", "First day (inclusive)")
	Cmd.Flags().StringVar(&to, "to", "", "Last day (inclusive)")
}

// Package template writes a sample fuel export.
package template

import (
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/fueltrack/cmd/root"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/validation"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the sample sheet.
const SheetName = "Transactions"

// Headers are the sample column labels, one per field of the default dictionary.
var Headers = []string{
	"Date", "Heure", "Véhicule", "Service véhicule", "Conducteur",
	"Service personne", "Produit", "Quantité", "Compteur", "Unité",
}

var sampleRows = [][]interface{}{
	{"15/01/2024", "08:30", "V001", "Voirie", "Martin", "Voirie", "Gasoil", 45.5, 12500, "L"},
	{"16/01/2024", "14:15", "V001", "Voirie", "Martin", "Voirie", "Gasoil", 38.2, 12780, "L"},
	{"16/01/2024", "09:05", "V002", "Espaces verts", "Durand", "Espaces verts", "Essence", 22, 48210, "L"},
}

var keywordsFile string

// Cmd represents the template command
var Cmd = &cobra.Command{
	Use:   "template",
	Short: "Write a sample xlsx export with the recognized headers",
	Long: `Write a sample workbook whose headers are recognized by the import, with a
few example rows. With --keywords the active keyword dictionary is also written so
it can be extended and passed back through ingest.keywords_file.

Example:
  fueltrack template -o modele.xlsx --keywords keywords.yaml`,
	Annotations: map[string]string{root.AnnotationNoStorage: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		output := root.SharedFlags.Output
		if output == "" {
			output = "fueltrack_template.xlsx"
		}
		if err := WriteTemplate(output); err != nil {
			root.Log.WithError(err).Fatalf("Failed to write template: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", output)

		if keywordsFile != "" {
			c := root.GetContainer()
			if err := c.GetKeywordStore().SaveDictionary(c.GetDictionary(), keywordsFile); err != nil {
				root.Log.WithError(err).Fatalf("Failed to write keywords: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Keywords written to %s\n", keywordsFile)
		}
	},
}

func init() {
	Cmd.Flags().StringVar(&keywordsFile, "keywords", "", "Also write the keyword dictionary to this file")
}

// WriteTemplate saves the sample workbook to path.
func WriteTemplate(path string) error {
	if err := validation.OutputPath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			root.Log.WithError(err).Warn("Failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	rows := append([][]interface{}{header}, sampleRows...)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

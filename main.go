package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/fueltrack/cmd/anomalies"
	"fjacquet/fueltrack/cmd/batch"
	"fjacquet/fueltrack/cmd/imports"
	"fjacquet/fueltrack/cmd/ingest"
	"fjacquet/fueltrack/cmd/inspect"
	"fjacquet/fueltrack/cmd/persons"
	"fjacquet/fueltrack/cmd/processed"
	"fjacquet/fueltrack/cmd/reprocess"
	"fjacquet/fueltrack/cmd/reset"
	"fjacquet/fueltrack/cmd/root"
	"fjacquet/fueltrack/cmd/template"
	"fjacquet/fueltrack/cmd/vehicles"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(reprocess.Cmd)
	root.Cmd.AddCommand(imports.Cmd)
	root.Cmd.AddCommand(reset.Cmd)
	root.Cmd.AddCommand(anomalies.Cmd)
	root.Cmd.AddCommand(processed.Cmd)
	root.Cmd.AddCommand(inspect.Cmd)
	root.Cmd.AddCommand(template.Cmd)
	root.Cmd.AddCommand(vehicles.Cmd)
	root.Cmd.AddCommand(persons.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retaildw/internal/datagen"
	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

var (
	sampleRows   int
	sampleSeed   uint64
	sampleOutput string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic retail extract",
	Long: `Generate a synthetic transaction extract in the source CSV format,
suitable for exercising the load pipeline and the analytics modules
without real data.

Example:
  pgedge-retaildw sample --rows 50000 --seed 7 --output retail_extract.csv`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().IntVar(&sampleRows, "rows", 0,
		"number of transaction lines to generate")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0,
		"random seed for reproducible output")
	sampleCmd.Flags().StringVar(&sampleOutput, "output", "",
		"output file path")
}

func runSample(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if sampleRows > 0 {
		cfg.Sample.Rows = sampleRows
	}
	if sampleSeed != 0 {
		cfg.Sample.Seed = sampleSeed
	}
	if sampleOutput != "" {
		cfg.Sample.Output = sampleOutput
	}

	if err := cfg.ValidateSample(); err != nil {
		return err
	}
	// Parse error ruled out by ValidateSample.
	start, _ := time.Parse("2006-01-02", cfg.Sample.StartDate)

	gen := datagen.NewGenerator(datagen.ExtractConfig{
		Rows:      cfg.Sample.Rows,
		Customers: cfg.Sample.Customers,
		Products:  cfg.Sample.Products,
		Seed:      cfg.Sample.Seed,
		Start:     start,
		Days:      cfg.Sample.Days,
	})
	records := gen.Generate()

	f, err := os.Create(cfg.Sample.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := extract.WriteCSV(f, records); err != nil {
		return fmt.Errorf("failed to write extract: %w", err)
	}

	cmd.Printf("Wrote %d rows to %s\n", len(records), cfg.Sample.Output)
	return nil
}

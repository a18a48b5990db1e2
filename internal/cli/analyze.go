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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retaildw/internal/analytics"
	"github.com/pgEdge/pgedge-retaildw/internal/logging"
	"github.com/pgEdge/pgedge-retaildw/internal/warehouse"
)

var (
	analyzeMode          string
	analyzeReferenceDate string
	analyzeGranularity   string
	analyzeMinSupport    int
	analyzeNoPublish     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute and publish the analytics models",
	Long: `Compute RFM segmentation, ABC classification, customer lifetime
value, cohort retention and market basket affinity over the current
warehouse state, then publish them to the analytics tables.

Mode "engine" takes a consistent snapshot and computes in-process;
mode "sql" runs the same models as SQL inside PostgreSQL. Both modes
produce identical rows. A module that fails is reported and keeps its
previous publication; the other modules publish normally.

Example:
  pgedge-retaildw analyze --mode sql --basket-granularity invoice`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "",
		"compute mode: engine or sql")
	analyzeCmd.Flags().StringVar(&analyzeReferenceDate, "reference-date", "",
		"recency anchor date (YYYY-MM-DD, default: now)")
	analyzeCmd.Flags().StringVar(&analyzeGranularity, "basket-granularity", "",
		"market basket grain: invoice, day or month")
	analyzeCmd.Flags().IntVar(&analyzeMinSupport, "min-support", 0,
		"minimum pair co-occurrence count to report")
	analyzeCmd.Flags().BoolVar(&analyzeNoPublish, "no-publish", false,
		"compute and report, but do not write the analytics tables")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if analyzeMode != "" {
		cfg.Analytics.Mode = analyzeMode
	}
	if analyzeReferenceDate != "" {
		cfg.Analytics.ReferenceDate = analyzeReferenceDate
	}
	if analyzeGranularity != "" {
		cfg.Analytics.BasketGranularity = analyzeGranularity
	}
	if analyzeMinSupport > 0 {
		cfg.Analytics.MinSupportCount = analyzeMinSupport
	}

	if err := cfg.ValidateAnalytics(); err != nil {
		return err
	}
	engineCfg := cfg.EngineConfig()

	ctx := context.Background()
	store, err := warehouse.Open(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	var res *analytics.Results
	switch cfg.Analytics.Mode {
	case "engine":
		snap, err := store.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to snapshot warehouse: %w", err)
		}
		logging.Info().Int("facts", len(snap.Facts)).Msg("Snapshot taken")
		res = analytics.NewEngine(engineCfg).Run(snap)
	case "sql":
		res, err = store.AnalyticsSQL(ctx, engineCfg)
		if err != nil {
			return err
		}
	}

	if !analyzeNoPublish {
		if err := store.Publish(ctx, res); err != nil {
			return err
		}
	}

	cmd.Printf("Analytics complete (%s mode)\n", cfg.Analytics.Mode)
	cmd.Printf("  rfm:    %d customers\n", len(res.RFM))
	cmd.Printf("  abc:    %d products\n", len(res.ABC))
	cmd.Printf("  clv:    %d customers\n", len(res.CLV))
	cmd.Printf("  cohort: %d cells\n", len(res.Cohort))
	cmd.Printf("  basket: %d pairs\n", len(res.Basket))
	if len(res.Errors) > 0 {
		for module, merr := range res.Errors {
			cmd.Printf("  FAILED %s: %v\n", module, merr)
		}
		return fmt.Errorf("%d analytics module(s) failed", len(res.Errors))
	}
	return nil
}

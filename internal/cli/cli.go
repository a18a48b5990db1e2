//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-retaildw.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retaildw/internal/config"
	"github.com/pgEdge/pgedge-retaildw/internal/logging"
	"github.com/pgEdge/pgedge-retaildw/internal/metrics"
	"github.com/pgEdge/pgedge-retaildw/pkg/version"
)

var (
	// Global flags
	cfgFile       string
	connection    string
	logLevel      string
	metricsListen string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-retaildw",
		Short: "Incremental retail data warehouse with built-in customer analytics",
		Long: `pgedge-retaildw loads retail transaction extracts into a PostgreSQL
star schema and derives customer analytics from it.

The load pipeline is incremental: a per-source watermark skips
already-loaded rows, dimensions keep full SCD2 history and fact rows
are deduplicated by invoice line, so re-running a load is always safe.

The analyze command computes RFM segmentation, ABC classification,
customer lifetime value, cohort retention and market basket affinity,
either in-engine or as SQL inside PostgreSQL; both modes publish
identical rows.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-retaildw.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "",
		"address to serve Prometheus metrics on (e.g. :9187, empty disables)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sampleCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	if metricsListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(metricsListen, mux); err != nil {
				logging.Warn().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

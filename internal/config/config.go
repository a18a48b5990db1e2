//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-retaildw.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-retaildw/internal/analytics"
)

// Config holds all configuration for pgedge-retaildw.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Analytics holds configuration for the analyze subcommand.
	Analytics AnalyticsConfig `mapstructure:"analytics"`

	// Sample holds configuration for the sample subcommand.
	Sample SampleConfig `mapstructure:"sample"`
}

// LoadConfig holds configuration for the incremental load pipeline.
type LoadConfig struct {
	// Location is the extract to load: a local path or s3://bucket/key.
	Location string `mapstructure:"location"`

	// Source identifies the source system for watermark tracking.
	Source string `mapstructure:"source"`

	// ForceFullReload ignores the stored watermark and re-reads the
	// whole extract. Already-loaded rows are skipped, not duplicated.
	ForceFullReload bool `mapstructure:"force_full_reload"`
}

// AnalyticsConfig holds the analytics thresholds and the compute mode.
type AnalyticsConfig struct {
	// Mode selects where the models are computed: "engine" or "sql".
	// Both produce the same rows.
	Mode string `mapstructure:"mode"`

	// ReferenceDate anchors recency calculations (YYYY-MM-DD).
	// Empty means the snapshot time.
	ReferenceDate string `mapstructure:"reference_date"`

	// Bands is the number of quantile bands for RFM scoring.
	Bands int `mapstructure:"bands"`

	// ClassAShare and ClassBShare are the cumulative revenue share
	// boundaries of ABC classes A and B.
	ClassAShare float64 `mapstructure:"class_a_share"`
	ClassBShare float64 `mapstructure:"class_b_share"`

	// DiscountRate is the annual discount rate applied to CLV.
	DiscountRate float64 `mapstructure:"discount_rate"`

	// LifespanFloorYears bounds the observed customer lifespan away
	// from zero for single-purchase customers.
	LifespanFloorYears float64 `mapstructure:"lifespan_floor_years"`

	// MinSupportCount is the minimum co-occurrence count for a
	// product pair to be reported.
	MinSupportCount int `mapstructure:"min_support_count"`

	// BasketGranularity selects what counts as one basket:
	// "invoice", "day" or "month".
	BasketGranularity string `mapstructure:"basket_granularity"`
}

// SampleConfig holds configuration for synthetic extract generation.
type SampleConfig struct {
	// Rows is the number of transaction lines to generate.
	Rows int `mapstructure:"rows"`

	// Customers and Products size the synthetic populations.
	Customers int `mapstructure:"customers"`
	Products  int `mapstructure:"products"`

	// Seed makes generation reproducible; 0 seeds from entropy.
	Seed uint64 `mapstructure:"seed"`

	// StartDate is the first invoice date (YYYY-MM-DD).
	StartDate string `mapstructure:"start_date"`

	// Days is the span of invoice dates.
	Days int `mapstructure:"days"`

	// Output is the extract file to write.
	Output string `mapstructure:"output"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	def := analytics.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Load: LoadConfig{
			Source: "retail_csv",
		},
		Analytics: AnalyticsConfig{
			Mode:               "engine",
			Bands:              def.Bands,
			ClassAShare:        def.ClassAShare,
			ClassBShare:        def.ClassBShare,
			DiscountRate:       def.DiscountRate,
			LifespanFloorYears: def.LifespanFloorYears,
			MinSupportCount:    def.MinSupportCount,
			BasketGranularity:  string(def.Basket),
		},
		Sample: SampleConfig{
			Rows:      10000,
			Customers: 500,
			Products:  200,
			StartDate: "2024-01-01",
			Days:      365,
			Output:    "retail_extract.csv",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-retaildw.yaml
// 3. ~/.config/pgedge-retaildw/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-retaildw")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-retaildw"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Load.Location == "" {
		return fmt.Errorf("extract location is required for load")
	}
	if c.Load.Source == "" {
		return fmt.Errorf("source name is required for load")
	}
	return nil
}

// ValidateAnalytics checks configuration required for the analyze command.
func (c *Config) ValidateAnalytics() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Analytics.Mode != "engine" && c.Analytics.Mode != "sql" {
		return fmt.Errorf("analytics mode must be 'engine' or 'sql'")
	}
	if c.Analytics.Bands < 2 {
		return fmt.Errorf("bands must be at least 2")
	}
	if c.Analytics.ClassAShare <= 0 || c.Analytics.ClassAShare >= 1 {
		return fmt.Errorf("class_a_share must be in (0, 1)")
	}
	if c.Analytics.ClassBShare <= c.Analytics.ClassAShare || c.Analytics.ClassBShare > 1 {
		return fmt.Errorf("class_b_share must be in (class_a_share, 1]")
	}
	if c.Analytics.DiscountRate < 0 {
		return fmt.Errorf("discount_rate must be non-negative")
	}
	if c.Analytics.LifespanFloorYears <= 0 {
		return fmt.Errorf("lifespan_floor_years must be positive")
	}
	if c.Analytics.MinSupportCount < 1 {
		return fmt.Errorf("min_support_count must be at least 1")
	}
	switch analytics.Granularity(c.Analytics.BasketGranularity) {
	case analytics.GranularityInvoice, analytics.GranularityDay, analytics.GranularityMonth:
	default:
		return fmt.Errorf("basket_granularity must be 'invoice', 'day' or 'month'")
	}
	if c.Analytics.ReferenceDate != "" {
		if _, err := time.Parse("2006-01-02", c.Analytics.ReferenceDate); err != nil {
			return fmt.Errorf("reference_date must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// ValidateSample checks configuration required for the sample command.
func (c *Config) ValidateSample() error {
	if c.Sample.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	if c.Sample.Customers < 1 || c.Sample.Products < 1 {
		return fmt.Errorf("customers and products must be at least 1")
	}
	if c.Sample.Days < 1 {
		return fmt.Errorf("days must be at least 1")
	}
	if _, err := time.Parse("2006-01-02", c.Sample.StartDate); err != nil {
		return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
	}
	if c.Sample.Output == "" {
		return fmt.Errorf("output path is required for sample")
	}
	return nil
}

// EngineConfig converts the analytics section into the engine's
// configuration. ValidateAnalytics must have passed.
func (c *Config) EngineConfig() analytics.Config {
	cfg := analytics.Config{
		Bands:              c.Analytics.Bands,
		ClassAShare:        c.Analytics.ClassAShare,
		ClassBShare:        c.Analytics.ClassBShare,
		DiscountRate:       c.Analytics.DiscountRate,
		LifespanFloorYears: c.Analytics.LifespanFloorYears,
		MinSupportCount:    c.Analytics.MinSupportCount,
		Basket:             analytics.Granularity(c.Analytics.BasketGranularity),
	}
	if c.Analytics.ReferenceDate != "" {
		// Parse error ruled out by ValidateAnalytics.
		cfg.ReferenceDate, _ = time.Parse("2006-01-02", c.Analytics.ReferenceDate)
	}
	return cfg
}

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics exposes Prometheus instrumentation for the pipeline
// and the analytics engine. The exposition handler is consumed by the
// external API layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsExtracted counts data rows read from extract sources.
	RowsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_rows_extracted_total",
		Help: "Data rows read from extract sources.",
	}, []string{"source"})

	// RowsRejected counts records rejected by the quality gate.
	RowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_rows_rejected_total",
		Help: "Records rejected by the quality gate.",
	}, []string{"source", "reason"})

	// FactsInserted counts fact rows inserted.
	FactsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_facts_inserted_total",
		Help: "Fact rows inserted into fact_sales.",
	}, []string{"source"})

	// FactsSkipped counts fact rows skipped as already loaded.
	FactsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_facts_skipped_total",
		Help: "Fact rows skipped because their natural identity was already loaded.",
	}, []string{"source"})

	// DimVersionsOpened counts dimension versions opened, per dimension.
	DimVersionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_dim_versions_opened_total",
		Help: "Dimension versions opened (new keys and SCD2 supersedes).",
	}, []string{"dimension"})

	// PipelineRuns counts pipeline runs by outcome.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_pipeline_runs_total",
		Help: "Pipeline runs by outcome (success, failure, noop).",
	}, []string{"source", "outcome"})

	// AnalyticsDuration observes per-module analytics computation time.
	AnalyticsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retaildw_analytics_duration_seconds",
		Help:    "Analytics module computation time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})

	// AnalyticsFailures counts per-module analytics failures.
	AnalyticsFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retaildw_analytics_failures_total",
		Help: "Analytics module failures.",
	}, []string{"module"})
)

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

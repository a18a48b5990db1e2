//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package load

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
	"github.com/pgEdge/pgedge-retaildw/internal/logging"
	"github.com/pgEdge/pgedge-retaildw/internal/metrics"
	"github.com/pgEdge/pgedge-retaildw/internal/validate"
)

// Batch log statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Config is one pipeline invocation.
type Config struct {
	// Location of the extract: local path or s3://bucket/key.
	Location string

	// Source identifies the source system for watermark tracking.
	Source string

	// ForceFullReload ignores the stored watermark and re-reads the
	// whole extract. Already-loaded fact rows are skipped, not
	// duplicated.
	ForceFullReload bool
}

// Result summarizes one pipeline run.
type Result struct {
	BatchID        uuid.UUID
	SourceRows     int
	FreshRows      int
	Accepted       int
	Rejected       int
	FactsInserted  int64
	FactsSkipped   int64
	VersionsOpened map[string]int64
	Cursor         Cursor
}

// Pipeline is the run-to-completion batch load: extract, validate,
// load dimensions and facts, advance the watermark, all gated by the
// per-source cursor.
type Pipeline struct {
	wh        Warehouse
	log       BatchLog
	validator *validate.Validator
}

// NewPipeline creates a pipeline. log may be nil to disable run history.
func NewPipeline(wh Warehouse, log BatchLog) *Pipeline {
	return &Pipeline{wh: wh, log: log, validator: validate.New()}
}

// Run executes one load. On any fatal error the warehouse and the
// watermark are left in their pre-run state and the error carries the
// source position needed for a clean retry.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Result, error) {
	res := &Result{BatchID: uuid.New()}
	p.startBatch(ctx, res.BatchID, cfg.Source)

	cursor, err := p.floor(ctx, cfg)
	if err != nil {
		return nil, p.fail(ctx, res, cfg.Source, err)
	}

	src, err := extract.OpenSource(ctx, cfg.Location)
	if err != nil {
		return nil, p.fail(ctx, res, cfg.Source, err)
	}
	batch, err := extract.Extract(ctx, src)
	if err != nil {
		return nil, p.fail(ctx, res, cfg.Source, err)
	}
	res.SourceRows = batch.SourceRows
	metrics.RowsExtracted.WithLabelValues(cfg.Source).Add(float64(batch.SourceRows))

	// Only rows strictly above the watermark are candidates.
	var fresh []extract.Record
	for _, r := range batch.Records {
		if !cursor.Covers(r) {
			fresh = append(fresh, r)
		}
	}
	res.FreshRows = len(fresh)

	accepted, rejected := p.validator.Partition(fresh)
	res.Accepted = len(accepted)
	res.Rejected = len(rejected)
	for _, rej := range rejected {
		metrics.RowsRejected.WithLabelValues(cfg.Source, string(rej.Reason)).Inc()
	}

	if len(fresh) == 0 {
		logging.Info().
			Str("source", cfg.Source).
			Time("watermark", cursor.Timestamp).
			Msg("No new records to load")
		metrics.PipelineRuns.WithLabelValues(cfg.Source, "noop").Inc()
		p.finishBatch(ctx, res, StatusSuccess, "")
		res.Cursor = cursor
		return res, nil
	}

	err = p.wh.RunLoad(ctx, cfg.Source, func(tx LoadTx) error {
		loader, err := NewFactLoader(ctx, tx)
		if err != nil {
			return err
		}

		inserted, skipped, next, err := loader.Load(ctx, accepted, cursor)
		if err != nil {
			return err
		}
		res.FactsInserted = inserted
		res.FactsSkipped = skipped
		res.VersionsOpened = loader.VersionsOpened()

		if len(rejected) > 0 {
			if err := tx.RecordRejections(ctx, res.BatchID, cfg.Source, rejected); err != nil {
				return err
			}
		}

		// The watermark also advances over rejected rows: they are
		// recorded in etl_rejected_records, not silently retried.
		for _, rej := range rejected {
			next = next.Observe(rej.Record)
		}
		res.Cursor = next

		// Processed counts every accepted fresh row, deduplicated
		// inserts included.
		return tx.AdvanceWatermark(ctx, cfg.Source, next, int64(len(accepted)), int64(len(rejected)))
	})
	if err != nil {
		if le, ok := err.(*Error); ok && le.Source == "" {
			le.Source = cfg.Source
		}
		return nil, p.fail(ctx, res, cfg.Source, err)
	}

	metrics.FactsInserted.WithLabelValues(cfg.Source).Add(float64(res.FactsInserted))
	metrics.FactsSkipped.WithLabelValues(cfg.Source).Add(float64(res.FactsSkipped))
	metrics.PipelineRuns.WithLabelValues(cfg.Source, "success").Inc()

	logging.Info().
		Str("source", cfg.Source).
		Int("rows", res.SourceRows).
		Int("fresh", res.FreshRows).
		Int64("inserted", res.FactsInserted).
		Int64("skipped", res.FactsSkipped).
		Int("rejected", res.Rejected).
		Time("watermark", res.Cursor.Timestamp).
		Msg("Load committed")

	p.finishBatch(ctx, res, StatusSuccess, "")
	return res, nil
}

func (p *Pipeline) floor(ctx context.Context, cfg Config) (Cursor, error) {
	if cfg.ForceFullReload {
		logging.Warn().Str("source", cfg.Source).Msg("Watermark override: full reload")
		return Cursor{}, nil
	}
	return p.wh.Watermark(ctx, cfg.Source)
}

func (p *Pipeline) fail(ctx context.Context, res *Result, source string, err error) error {
	metrics.PipelineRuns.WithLabelValues(source, "failure").Inc()
	p.finishBatch(ctx, res, StatusFailed, err.Error())
	return err
}

func (p *Pipeline) startBatch(ctx context.Context, id uuid.UUID, source string) {
	if p.log == nil {
		return
	}
	if err := p.log.StartBatch(ctx, id, "incremental_load", source, time.Now().UTC()); err != nil {
		logging.Warn().Err(err).Msg("Failed to record batch start")
	}
}

func (p *Pipeline) finishBatch(ctx context.Context, res *Result, status, errMsg string) {
	if p.log == nil {
		return
	}
	err := p.log.FinishBatch(ctx, res.BatchID, status,
		int64(res.SourceRows), res.FactsInserted, res.FactsSkipped, int64(res.Rejected), errMsg)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to record batch finish")
	}
}

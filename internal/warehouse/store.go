//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-retaildw/internal/db"
	"github.com/pgEdge/pgedge-retaildw/internal/load"
	"github.com/pgEdge/pgedge-retaildw/internal/validate"
)

// Store is the warehouse handle. It implements load.Warehouse and
// load.BatchLog over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the warehouse database.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for schema management.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Watermark returns the stored cursor for a source. A source that has
// never committed a load yields a zero cursor.
func (s *Store) Watermark(ctx context.Context, source string) (load.Cursor, error) {
	var c load.Cursor
	err := s.pool.QueryRow(ctx,
		`SELECT watermark_ts, watermark_invoice FROM etl_watermark WHERE source = $1`,
		source).Scan(&c.Timestamp, &c.Invoice)
	if errors.Is(err, pgx.ErrNoRows) {
		return load.Cursor{}, nil
	}
	if err != nil {
		return load.Cursor{}, fmt.Errorf("read watermark for %s: %w", source, err)
	}
	c.Timestamp = c.Timestamp.UTC()
	return c, nil
}

// SourceWatermark is the stored watermark state of one source.
type SourceWatermark struct {
	Source        string
	Cursor        load.Cursor
	RowsProcessed int64
	RowsRejected  int64
	UpdatedAt     time.Time
}

// Watermarks returns the watermark state of every known source.
func (s *Store) Watermarks(ctx context.Context) ([]SourceWatermark, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, watermark_ts, watermark_invoice, rows_processed, rows_rejected, updated_at
		FROM etl_watermark
		ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("read watermarks: %w", err)
	}
	defer rows.Close()

	var out []SourceWatermark
	for rows.Next() {
		var w SourceWatermark
		err := rows.Scan(&w.Source, &w.Cursor.Timestamp, &w.Cursor.Invoice,
			&w.RowsProcessed, &w.RowsRejected, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		w.Cursor.Timestamp = w.Cursor.Timestamp.UTC()
		out = append(out, w)
	}
	return out, rows.Err()
}

// RunLoad executes fn inside one transaction holding the per-source
// advisory lock, so concurrent loads of the same source serialize
// instead of interleaving dimension versions.
func (s *Store) RunLoad(ctx context.Context, source string, fn func(tx load.LoadTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('retaildw_load_' || $1)::bigint)`, source)
	if err != nil {
		return fmt.Errorf("acquire load lock for %s: %w", source, err)
	}

	if err := fn(&loadTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// attrCol is one typed attribute column of a dimension table. The cast
// bridges the loader's string attributes to the column type.
type attrCol struct {
	name string
	cast string
}

// dimTable maps a dimension name onto its table layout.
type dimTable struct {
	table       string
	keyCol      string
	naturalCol  string
	naturalCast string
	attrs       []attrCol
}

var dimTables = map[string]dimTable{
	load.DimCustomer: {
		table: "dim_customer", keyCol: "customer_key", naturalCol: "customer_id",
		attrs: []attrCol{{name: "country"}},
	},
	load.DimProduct: {
		table: "dim_product", keyCol: "product_key", naturalCol: "stock_code",
		attrs: []attrCol{{name: "description"}},
	},
	load.DimStore: {
		table: "dim_store", keyCol: "store_key", naturalCol: "store_id",
		attrs: []attrCol{{name: "region"}},
	},
	load.DimTime: {
		table: "dim_time", keyCol: "time_key", naturalCol: "calendar_date", naturalCast: "::date",
		attrs: []attrCol{
			{name: "day", cast: "::int"},
			{name: "month", cast: "::int"},
			{name: "year", cast: "::int"},
			{name: "quarter", cast: "::int"},
			{name: "day_name"},
			{name: "is_weekend", cast: "::boolean"},
		},
	},
}

// loadTx implements load.LoadTx over one pgx transaction.
type loadTx struct {
	tx pgx.Tx
}

func (t *loadTx) CurrentVersions(ctx context.Context, dimension string) (map[string]load.Version, error) {
	dt, ok := dimTables[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dimension)
	}

	cols := []string{dt.keyCol, dt.naturalCol + "::text"}
	for _, a := range dt.attrs {
		cols = append(cols, a.name+"::text")
	}
	cols = append(cols, "effective_from")

	rows, err := t.tx.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE is_current`, strings.Join(cols, ", "), dt.table))
	if err != nil {
		return nil, fmt.Errorf("read current %s versions: %w", dimension, err)
	}
	defer rows.Close()

	current := make(map[string]load.Version)
	for rows.Next() {
		v := load.Version{Attributes: make(map[string]string, len(dt.attrs))}
		vals := make([]string, len(dt.attrs))
		dest := []any{&v.SurrogateKey, &v.NaturalKey}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &v.EffectiveFrom)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s version: %w", dimension, err)
		}
		for i, a := range dt.attrs {
			v.Attributes[a.name] = vals[i]
		}
		v.EffectiveFrom = v.EffectiveFrom.UTC()
		current[v.NaturalKey] = v
	}
	return current, rows.Err()
}

func (t *loadTx) OpenVersion(ctx context.Context, dimension, naturalKey string, attrs map[string]string, from time.Time) (int64, error) {
	dt, ok := dimTables[dimension]
	if !ok {
		return 0, fmt.Errorf("unknown dimension %q", dimension)
	}

	cols := []string{dt.naturalCol}
	placeholders := []string{"$1" + dt.naturalCast}
	args := []any{naturalKey}
	for _, a := range dt.attrs {
		cols = append(cols, a.name)
		placeholders = append(placeholders, fmt.Sprintf("$%d%s", len(args)+1, a.cast))
		args = append(args, attrs[a.name])
	}
	cols = append(cols, "effective_from", "is_current")
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1), "TRUE")
	args = append(args, from)

	var key int64
	err := t.tx.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		dt.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), dt.keyCol),
		args...).Scan(&key)
	if err != nil {
		return 0, fmt.Errorf("open %s version for %s: %w", dimension, naturalKey, err)
	}
	return key, nil
}

func (t *loadTx) CloseVersion(ctx context.Context, dimension string, surrogateKey int64, to time.Time) error {
	dt, ok := dimTables[dimension]
	if !ok {
		return fmt.Errorf("unknown dimension %q", dimension)
	}
	_, err := t.tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET effective_to = $1, is_current = FALSE WHERE %s = $2`,
		dt.table, dt.keyCol), to, surrogateKey)
	if err != nil {
		return fmt.Errorf("close %s version %d: %w", dimension, surrogateKey, err)
	}
	return nil
}

func (t *loadTx) InsertFact(ctx context.Context, f load.Fact) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO fact_sales
		    (customer_key, product_key, store_key, time_key,
		     invoice_no, stock_code, quantity, unit_price, line_amount, invoice_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric / 100, $9::numeric / 100, $10)
		ON CONFLICT (invoice_no, stock_code) DO NOTHING`,
		f.CustomerKey, f.ProductKey, f.StoreKey, f.TimeKey,
		f.InvoiceNo, f.ProductID, f.Quantity, f.UnitPriceCents, f.AmountCents, f.InvoiceTS)
	if err != nil {
		return false, fmt.Errorf("insert fact %s/%s: %w", f.InvoiceNo, f.ProductID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *loadTx) RecordRejections(ctx context.Context, batchID uuid.UUID, source string, rejected []validate.Rejected) error {
	batch := &pgx.Batch{}
	for _, rej := range rejected {
		batch.Queue(`
			INSERT INTO etl_rejected_records
			    (batch_id, source, source_row, invoice_no, stock_code, reason)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			batchID, source, rej.Record.Position,
			rej.Record.InvoiceNo, rej.Record.StockCode, string(rej.Reason))
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("record rejections: %w", err)
	}
	return nil
}

func (t *loadTx) AdvanceWatermark(ctx context.Context, source string, c load.Cursor, processed, rejected int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO etl_watermark
		    (source, watermark_ts, watermark_invoice, rows_processed, rows_rejected, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (source) DO UPDATE SET
		    watermark_ts      = EXCLUDED.watermark_ts,
		    watermark_invoice = EXCLUDED.watermark_invoice,
		    rows_processed    = etl_watermark.rows_processed + EXCLUDED.rows_processed,
		    rows_rejected     = etl_watermark.rows_rejected + EXCLUDED.rows_rejected,
		    updated_at        = now()`,
		source, c.Timestamp, c.Invoice, processed, rejected)
	if err != nil {
		return fmt.Errorf("advance watermark for %s: %w", source, err)
	}
	return nil
}

// StartBatch records the beginning of a pipeline run.
func (s *Store) StartBatch(ctx context.Context, batchID uuid.UUID, pipeline, source string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO etl_batch_log (batch_id, pipeline, source, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		batchID, pipeline, source, load.StatusRunning, startedAt)
	return err
}

// FinishBatch records the outcome of a pipeline run.
func (s *Store) FinishBatch(ctx context.Context, batchID uuid.UUID, status string, read, inserted, skipped, rejected int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE etl_batch_log SET
		    status        = $2,
		    finished_at   = now(),
		    rows_read     = $3,
		    rows_inserted = $4,
		    rows_skipped  = $5,
		    rows_rejected = $6,
		    error         = $7
		WHERE batch_id = $1`,
		batchID, status, read, inserted, skipped, rejected, errMsg)
	return err
}

// BatchRun is one row of pipeline run history.
type BatchRun struct {
	BatchID      uuid.UUID
	Pipeline     string
	Source       string
	Status       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	RowsRead     int64
	RowsInserted int64
	RowsSkipped  int64
	RowsRejected int64
	Error        string
}

// RecentBatches returns the most recent pipeline runs, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]BatchRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT batch_id, pipeline, source, status, started_at, finished_at,
		       rows_read, rows_inserted, rows_skipped, rows_rejected, error
		FROM etl_batch_log
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("read batch log: %w", err)
	}
	defer rows.Close()

	var runs []BatchRun
	for rows.Next() {
		var r BatchRun
		err := rows.Scan(&r.BatchID, &r.Pipeline, &r.Source, &r.Status, &r.StartedAt,
			&r.FinishedAt, &r.RowsRead, &r.RowsInserted, &r.RowsSkipped, &r.RowsRejected, &r.Error)
		if err != nil {
			return nil, fmt.Errorf("scan batch log: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

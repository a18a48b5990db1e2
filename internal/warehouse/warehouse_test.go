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
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/testutil"
	"github.com/pgEdge/pgedge-retaildw/internal/analytics"
	"github.com/pgEdge/pgedge-retaildw/internal/datagen"
	"github.com/pgEdge/pgedge-retaildw/internal/extract"
	"github.com/pgEdge/pgedge-retaildw/internal/load"
)

const testSource = "retail_csv"

func setupStore(t *testing.T) *Store {
	t.Helper()

	baseConn := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConn, "wh")
	dbName := testutil.GetDBNameFromConnStr(connStr)

	cleanup := testutil.NewTestCleanup(t, baseConn, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, connStr)
	cleanup.SetPool(pool)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := CreateSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return New(pool)
}

func writeExtract(t *testing.T, records []extract.Record) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "extract.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create extract file: %v", err)
	}
	defer f.Close()
	if err := extract.WriteCSV(f, records); err != nil {
		t.Fatalf("Failed to write extract: %v", err)
	}
	return path
}

func sampleRecords(t *testing.T, rows int) []extract.Record {
	t.Helper()

	gen := datagen.NewGenerator(datagen.ExtractConfig{
		Rows:      rows,
		Customers: 40,
		Products:  30,
		Seed:      42,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:      120,
	})
	return gen.Generate()
}

func runLoad(t *testing.T, store *Store, location string, full bool) *load.Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := load.NewPipeline(store, store).Run(ctx, load.Config{
		Location:        location,
		Source:          testSource,
		ForceFullReload: full,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return res
}

func countRows(t *testing.T, store *Store, table string) int64 {
	t.Helper()

	var n int64
	err := store.Pool().QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func TestLoadAndRerun(t *testing.T) {
	store := setupStore(t)
	path := writeExtract(t, sampleRecords(t, 400))
	ctx := context.Background()

	res := runLoad(t, store, path, false)
	if res.SourceRows != 400 {
		t.Errorf("Expected 400 source rows, got %d", res.SourceRows)
	}
	if res.FactsInserted == 0 {
		t.Fatal("Expected facts to be inserted on first load")
	}
	if res.FactsInserted != int64(res.Accepted) {
		t.Errorf("Inserted %d facts but accepted %d rows", res.FactsInserted, res.Accepted)
	}
	if got := countRows(t, store, "fact_sales"); got != res.FactsInserted {
		t.Errorf("fact_sales holds %d rows, pipeline reported %d", got, res.FactsInserted)
	}
	if got := countRows(t, store, "etl_rejected_records"); got != int64(res.Rejected) {
		t.Errorf("etl_rejected_records holds %d rows, pipeline reported %d", got, res.Rejected)
	}

	wm, err := store.Watermark(ctx, testSource)
	if err != nil {
		t.Fatalf("Failed to read watermark: %v", err)
	}
	if wm.IsZero() {
		t.Fatal("Expected non-zero watermark after load")
	}
	if wm != res.Cursor {
		t.Errorf("Stored watermark %v does not match pipeline cursor %v", wm, res.Cursor)
	}

	// Re-running the same extract must be a no-op: everything is at or
	// below the watermark.
	again := runLoad(t, store, path, false)
	if again.FreshRows != 0 {
		t.Errorf("Expected 0 fresh rows on rerun, got %d", again.FreshRows)
	}
	if again.FactsInserted != 0 {
		t.Errorf("Expected 0 inserts on rerun, got %d", again.FactsInserted)
	}
	if got := countRows(t, store, "fact_sales"); got != res.FactsInserted {
		t.Errorf("Rerun changed fact_sales row count to %d", got)
	}

	// A forced full reload re-reads everything but the fact conflict
	// target keeps the table unchanged.
	full := runLoad(t, store, path, true)
	if full.FreshRows != full.SourceRows {
		t.Errorf("Full reload saw %d fresh of %d source rows", full.FreshRows, full.SourceRows)
	}
	if full.FactsInserted != 0 {
		t.Errorf("Full reload inserted %d duplicate facts", full.FactsInserted)
	}
	if full.FactsSkipped != res.FactsInserted {
		t.Errorf("Full reload skipped %d facts, expected %d", full.FactsSkipped, res.FactsInserted)
	}
}

func TestDimensionSupersede(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	rec := func(pos int64, invoice string, ts time.Time, country string) extract.Record {
		return extract.Record{
			Position:       pos,
			InvoiceNo:      invoice,
			StockCode:      "21730",
			Description:    "GLASS STAR FROSTED T-LIGHT HOLDER",
			Quantity:       2,
			InvoiceDate:    ts,
			UnitPriceCents: 425,
			CustomerID:     "17850",
			Country:        country,
		}
	}

	runLoad(t, store, writeExtract(t, []extract.Record{
		rec(1, "536365", base, "United Kingdom"),
	}), false)

	// The customer relocates. The current version must be closed and a
	// new one opened; the old fact keeps its original surrogate key.
	runLoad(t, store, writeExtract(t, []extract.Record{
		rec(1, "536366", base.AddDate(0, 0, 7), "Germany"),
	}), false)

	rows, err := store.Pool().Query(ctx, `
        SELECT country, is_current, effective_to IS NULL
        FROM dim_customer WHERE customer_id = '17850'
        ORDER BY effective_from`)
	if err != nil {
		t.Fatalf("Failed to query dim_customer: %v", err)
	}
	defer rows.Close()

	type version struct {
		country   string
		current   bool
		openEnded bool
	}
	var versions []version
	for rows.Next() {
		var v version
		if err := rows.Scan(&v.country, &v.current, &v.openEnded); err != nil {
			t.Fatalf("Failed to scan version: %v", err)
		}
		versions = append(versions, v)
	}
	if len(versions) != 2 {
		t.Fatalf("Expected 2 customer versions, got %d", len(versions))
	}
	if versions[0].country != "United Kingdom" || versions[0].current || versions[0].openEnded {
		t.Errorf("Superseded version not closed: %+v", versions[0])
	}
	if versions[1].country != "Germany" || !versions[1].current || !versions[1].openEnded {
		t.Errorf("New version not current: %+v", versions[1])
	}

	// Facts point at the version current when they were loaded.
	var distinctKeys int64
	err = store.Pool().QueryRow(ctx, `
        SELECT count(DISTINCT customer_key) FROM fact_sales`).Scan(&distinctKeys)
	if err != nil {
		t.Fatalf("Failed to count customer keys: %v", err)
	}
	if distinctKeys != 2 {
		t.Errorf("Expected facts to span 2 customer versions, got %d", distinctKeys)
	}
}

func TestEngineMatchesSQL(t *testing.T) {
	store := setupStore(t)
	runLoad(t, store, writeExtract(t, sampleRecords(t, 600)), false)

	ctx := context.Background()
	cfg := analytics.DefaultConfig()
	// Pin the recency anchor so both passes measure from the same day.
	cfg.ReferenceDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Failed to take snapshot: %v", err)
	}
	engine := analytics.NewEngine(cfg).Run(snap)
	if len(engine.Errors) != 0 {
		t.Fatalf("Engine pass failed: %v", engine.Errors)
	}

	sql, err := store.AnalyticsSQL(ctx, cfg)
	if err != nil {
		t.Fatalf("SQL pass failed: %v", err)
	}
	if len(sql.Errors) != 0 {
		t.Fatalf("SQL pass failed: %v", sql.Errors)
	}

	if !reflect.DeepEqual(engine.RFM, sql.RFM) {
		t.Errorf("RFM results differ between engine and SQL passes")
	}
	if !reflect.DeepEqual(engine.ABC, sql.ABC) {
		t.Errorf("ABC results differ between engine and SQL passes")
	}
	if !reflect.DeepEqual(engine.CLV, sql.CLV) {
		t.Errorf("CLV results differ between engine and SQL passes")
	}
	if !reflect.DeepEqual(engine.Cohort, sql.Cohort) {
		t.Errorf("Cohort results differ between engine and SQL passes")
	}
	if !reflect.DeepEqual(engine.Basket, sql.Basket) {
		t.Errorf("Basket results differ between engine and SQL passes")
	}
}

func TestPublish(t *testing.T) {
	store := setupStore(t)
	runLoad(t, store, writeExtract(t, sampleRecords(t, 500)), false)

	ctx := context.Background()
	cfg := analytics.DefaultConfig()
	cfg.ReferenceDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	res, err := store.AnalyticsSQL(ctx, cfg)
	if err != nil {
		t.Fatalf("SQL pass failed: %v", err)
	}
	if err := store.Publish(ctx, res); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	checks := []struct {
		table string
		want  int
	}{
		{"analytics_rfm", len(res.RFM)},
		{"analytics_abc", len(res.ABC)},
		{"analytics_clv", len(res.CLV)},
		{"analytics_cohort", len(res.Cohort)},
		{"analytics_basket", len(res.Basket)},
	}
	for _, c := range checks {
		if got := countRows(t, store, c.table); got != int64(c.want) {
			t.Errorf("%s holds %d rows, expected %d", c.table, got, c.want)
		}
	}

	// Publishing again replaces, never appends.
	if err := store.Publish(ctx, res); err != nil {
		t.Fatalf("Second publish failed: %v", err)
	}
	if got := countRows(t, store, "analytics_rfm"); got != int64(len(res.RFM)) {
		t.Errorf("Republish appended rows: analytics_rfm holds %d", got)
	}
}

func TestBatchLog(t *testing.T) {
	store := setupStore(t)
	res := runLoad(t, store, writeExtract(t, sampleRecords(t, 200)), false)

	batches, err := store.RecentBatches(context.Background(), 5)
	if err != nil {
		t.Fatalf("Failed to list batches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.BatchID != res.BatchID {
		t.Errorf("Batch id mismatch: %s vs %s", b.BatchID, res.BatchID)
	}
	if b.Status != load.StatusSuccess {
		t.Errorf("Expected %s batch, got %s", load.StatusSuccess, b.Status)
	}
	if b.RowsInserted != res.FactsInserted {
		t.Errorf("Batch rows_inserted %d, pipeline reported %d", b.RowsInserted, res.FactsInserted)
	}
}

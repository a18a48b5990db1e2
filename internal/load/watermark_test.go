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
	"testing"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

func rec(invoice string, ts time.Time) extract.Record {
	return extract.Record{InvoiceNo: invoice, InvoiceDate: ts}
}

func TestCursorCovers(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Cursor{Timestamp: ts, Invoice: "536400"}

	if !c.Covers(rec("536399", ts.Add(-time.Minute))) {
		t.Error("Record below the watermark must be covered")
	}
	if !c.Covers(rec("536400", ts)) {
		t.Error("Record at the watermark timestamp must be covered")
	}
	if c.Covers(rec("536401", ts.Add(time.Minute))) {
		t.Error("Record above the watermark must not be covered")
	}

	// A zero cursor covers nothing.
	var zero Cursor
	if !zero.IsZero() {
		t.Error("Expected zero cursor")
	}
	if zero.Covers(rec("1", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))) {
		t.Error("Zero cursor must not cover any record")
	}
}

func TestCursorObserve(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var c Cursor
	c = c.Observe(rec("536400", ts))
	if !c.Timestamp.Equal(ts) || c.Invoice != "536400" {
		t.Fatalf("Unexpected cursor after first observe: %+v", c)
	}

	// Older records never move the cursor back.
	c = c.Observe(rec("536300", ts.Add(-time.Hour)))
	if !c.Timestamp.Equal(ts) || c.Invoice != "536400" {
		t.Errorf("Cursor moved backwards: %+v", c)
	}

	// Same timestamp, higher invoice advances the invoice only.
	c = c.Observe(rec("536410", ts))
	if !c.Timestamp.Equal(ts) || c.Invoice != "536410" {
		t.Errorf("Expected invoice advance at equal timestamp: %+v", c)
	}

	// Later timestamp advances both.
	c = c.Observe(rec("536050", ts.Add(time.Minute)))
	if !c.Timestamp.Equal(ts.Add(time.Minute)) || c.Invoice != "536050" {
		t.Errorf("Expected timestamp advance: %+v", c)
	}
}

func TestSortBySourcePosition(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []extract.Record{
		{InvoiceNo: "536402", InvoiceDate: ts.Add(time.Hour), Position: 3},
		{InvoiceNo: "536400", InvoiceDate: ts, Position: 2},
		{InvoiceNo: "536400", InvoiceDate: ts, Position: 1},
		{InvoiceNo: "536399", InvoiceDate: ts, Position: 4},
	}
	SortBySourcePosition(records)

	wantOrder := []int64{4, 1, 2, 3}
	for i, want := range wantOrder {
		if records[i].Position != want {
			t.Errorf("Position %d: got record %d, want %d", i, records[i].Position, want)
		}
	}
}

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package load implements the incremental load pipeline: SCD2 dimension
// resolution, idempotent fact loading and watermark advancement.
package load

import (
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

// Cursor is a per-source watermark: the highest source position
// confirmed loaded. It is read before extraction, threaded through the
// run as a value and persisted only when the load transaction commits.
type Cursor struct {
	// Timestamp is the invoice timestamp of the highest loaded record.
	Timestamp time.Time

	// Invoice is the invoice number at that timestamp, kept for run
	// diagnostics and the status command.
	Invoice string
}

// IsZero reports whether no load has committed for the source yet.
func (c Cursor) IsZero() bool {
	return c.Timestamp.IsZero()
}

// Covers reports whether the record is at or below the watermark and
// therefore already loaded. Load resumes strictly above the cursor.
func (c Cursor) Covers(r extract.Record) bool {
	return !r.InvoiceDate.After(c.Timestamp)
}

// Observe returns the cursor advanced to include the record, keeping
// the watermark monotonic.
func (c Cursor) Observe(r extract.Record) Cursor {
	if r.InvoiceDate.After(c.Timestamp) {
		return Cursor{Timestamp: r.InvoiceDate, Invoice: r.InvoiceNo}
	}
	if r.InvoiceDate.Equal(c.Timestamp) && r.InvoiceNo > c.Invoice {
		return Cursor{Timestamp: c.Timestamp, Invoice: r.InvoiceNo}
	}
	return c
}

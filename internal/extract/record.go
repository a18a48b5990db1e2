//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package extract reads raw retail transaction extracts into typed records.
package extract

import "time"

// Record is one transaction line from a retail extract.
type Record struct {
	// Position is the 1-based data row number within the extract file.
	Position int64

	InvoiceNo      string
	StockCode      string
	Description    string
	Quantity       int64
	InvoiceDate    time.Time
	UnitPriceCents int64
	CustomerID     string
	Country        string
}

// AmountCents returns the line amount (quantity x unit price) in cents.
func (r Record) AmountCents() int64 {
	return r.Quantity * r.UnitPriceCents
}

// Batch is the result of extracting one source file.
type Batch struct {
	// Source describes where the extract came from (path or URI).
	Source string

	// ExtractedAt is when extraction completed.
	ExtractedAt time.Time

	// SourceRows is the number of data rows read from the source,
	// including rows the validator later rejects.
	SourceRows int

	Records []Record
}

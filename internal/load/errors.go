//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package load

import "fmt"

// Error is a fatal load failure. The run transaction is rolled back and
// the watermark left untouched, so the same batch can be retried.
type Error struct {
	Source   string
	Invoice  string
	Position int64
	Err      error
}

func (e *Error) Error() string {
	if e.Invoice != "" {
		return fmt.Sprintf("load failed at invoice %s (row %d): %v", e.Invoice, e.Position, e.Err)
	}
	if e.Source != "" {
		return fmt.Sprintf("load %s failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pgEdge/pgedge-retaildw/internal/money"
)

// WriteCSV writes records in extract format v1, header included.
// Used by the sample generator and by tests that round-trip extracts.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.InvoiceNo,
			r.StockCode,
			r.Description,
			strconv.FormatInt(r.Quantity, 10),
			r.InvoiceDate.UTC().Format(invoiceDateLayout),
			money.FormatCents(r.UnitPriceCents),
			r.CustomerID,
			r.Country,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

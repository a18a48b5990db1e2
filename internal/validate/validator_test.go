//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package validate

import (
	"testing"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

func goodRecord() extract.Record {
	return extract.Record{
		Position:       1,
		InvoiceNo:      "536365",
		StockCode:      "85123A",
		Description:    "WHITE HANGING HEART T-LIGHT HOLDER",
		Quantity:       6,
		InvoiceDate:    time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		UnitPriceCents: 255,
		CustomerID:     "17850",
		Country:        "United Kingdom",
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*extract.Record)
		want   Reason
	}{
		{name: "valid", mutate: func(r *extract.Record) {}, want: ""},
		{name: "missing invoice", mutate: func(r *extract.Record) { r.InvoiceNo = "" }, want: ReasonMissingInvoice},
		{name: "missing product", mutate: func(r *extract.Record) { r.StockCode = "" }, want: ReasonMissingProduct},
		{name: "missing customer", mutate: func(r *extract.Record) { r.CustomerID = "" }, want: ReasonMissingCustomer},
		{name: "missing country", mutate: func(r *extract.Record) { r.Country = "" }, want: ReasonMissingCountry},
		{name: "zero quantity", mutate: func(r *extract.Record) { r.Quantity = 0 }, want: ReasonNonPositiveQty},
		{name: "return line", mutate: func(r *extract.Record) { r.Quantity = -6 }, want: ReasonNonPositiveQty},
		{name: "negative price", mutate: func(r *extract.Record) { r.UnitPriceCents = -100 }, want: ReasonNegativePrice},
		{name: "free item passes", mutate: func(r *extract.Record) { r.UnitPriceCents = 0 }, want: ""},
		{
			name:   "prehistoric date",
			mutate: func(r *extract.Record) { r.InvoiceDate = time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC) },
			want:   ReasonImplausibleDate,
		},
		{
			name:   "far future date",
			mutate: func(r *extract.Record) { r.InvoiceDate = time.Now().UTC().AddDate(1, 0, 0) },
			want:   ReasonImplausibleDate,
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := goodRecord()
			tt.mutate(&r)
			if got := v.Check(r); got != tt.want {
				t.Errorf("Check() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckFirstReasonWins(t *testing.T) {
	r := goodRecord()
	r.InvoiceNo = ""
	r.Quantity = -1
	if got := New().Check(r); got != ReasonMissingInvoice {
		t.Errorf("Check() = %q, want %q", got, ReasonMissingInvoice)
	}
}

func TestPartition(t *testing.T) {
	good := goodRecord()
	bad := goodRecord()
	bad.Position = 2
	bad.Quantity = -6

	accepted, rejected := New().Partition([]extract.Record{good, bad})
	if len(accepted) != 1 || len(rejected) != 1 {
		t.Fatalf("Expected 1 accepted and 1 rejected, got %d and %d", len(accepted), len(rejected))
	}
	if accepted[0].Position != 1 {
		t.Errorf("Wrong record accepted: %+v", accepted[0])
	}
	if rejected[0].Reason != ReasonNonPositiveQty {
		t.Errorf("Expected %q, got %q", ReasonNonPositiveQty, rejected[0].Reason)
	}
}

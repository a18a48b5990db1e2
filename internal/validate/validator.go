//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package validate applies the quality gate to extracted records.
package validate

import (
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

// Reason identifies why a record was rejected.
type Reason string

const (
	ReasonMissingInvoice  Reason = "missing_invoice"
	ReasonMissingProduct  Reason = "missing_product"
	ReasonMissingCustomer Reason = "missing_customer"
	ReasonMissingCountry  Reason = "missing_country"
	ReasonNonPositiveQty  Reason = "non_positive_quantity"
	ReasonNegativePrice   Reason = "negative_price"
	ReasonImplausibleDate Reason = "implausible_date"
)

// Rejected pairs a record with the first rule it violated.
type Rejected struct {
	Record extract.Record
	Reason Reason
}

func (r Rejected) String() string {
	return fmt.Sprintf("row %d invoice %q: %s", r.Record.Position, r.Record.InvoiceNo, r.Reason)
}

// Validator holds the configurable bounds of the quality gate.
type Validator struct {
	// Dates outside [MinDate, MaxDate) are implausible. MaxDate guards
	// against far-future timestamps from clock-skewed sources.
	MinDate time.Time
	MaxDate time.Time
}

// New returns a Validator with default plausibility bounds.
func New() *Validator {
	return &Validator{
		MinDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxDate: time.Now().UTC().AddDate(0, 0, 1),
	}
}

// Check returns the rejection reason for a record, or "" if it passes.
func (v *Validator) Check(r extract.Record) Reason {
	switch {
	case r.InvoiceNo == "":
		return ReasonMissingInvoice
	case r.StockCode == "":
		return ReasonMissingProduct
	case r.CustomerID == "":
		return ReasonMissingCustomer
	case r.Country == "":
		return ReasonMissingCountry
	case r.Quantity <= 0:
		return ReasonNonPositiveQty
	case r.UnitPriceCents < 0:
		return ReasonNegativePrice
	case r.InvoiceDate.Before(v.MinDate) || !r.InvoiceDate.Before(v.MaxDate):
		return ReasonImplausibleDate
	}
	return ""
}

// Partition splits records into accepted and rejected sets, preserving
// source order. Rejected records are reported to the caller, never
// silently dropped.
func (v *Validator) Partition(records []extract.Record) (accepted []extract.Record, rejected []Rejected) {
	for _, r := range records {
		if reason := v.Check(r); reason != "" {
			rejected = append(rejected, Rejected{Record: r, Reason: reason})
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted, rejected
}

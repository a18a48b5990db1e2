//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package analytics computes the five derived models (RFM, ABC, CLV,
// cohort retention, market basket) over a read-only warehouse snapshot.
//
// Every module is a pure function of (Snapshot, Config) and has a SQL
// twin in the warehouse package; both passes must agree on the same
// snapshot within the declared rounding (shares at six fractional
// digits, money at two).
package analytics

import "time"

// Fact is one fact row joined to its current dimension rows.
type Fact struct {
	CustomerID  string
	ProductID   string
	Description string
	StoreID     string
	InvoiceNo   string
	InvoiceTS   time.Time
	Quantity    int64
	AmountCents int64
}

// Snapshot is a consistent read-only view of the warehouse.
type Snapshot struct {
	TakenAt time.Time
	Facts   []Fact
}

// Granularity selects what counts as "one basket" in market basket
// analysis. The reference behavior conflated customer and day; the
// grain is configurable because the right answer depends on whether the
// source carries a true point-of-sale transaction id.
type Granularity string

const (
	// GranularityInvoice treats each invoice as a basket.
	GranularityInvoice Granularity = "invoice"
	// GranularityDay groups a customer's purchases per calendar day.
	GranularityDay Granularity = "day"
	// GranularityMonth groups a customer's purchases per calendar month.
	GranularityMonth Granularity = "month"
)

// Config holds the tunable thresholds of the analytics modules.
type Config struct {
	// ReferenceDate anchors recency; zero means the snapshot time.
	ReferenceDate time.Time

	// Bands is the number of quantile bands for RFM scoring.
	Bands int

	// ClassAShare and ClassBShare are the cumulative revenue share
	// boundaries of ABC classes A and B.
	ClassAShare float64
	ClassBShare float64

	// DiscountRate is the annual discount rate applied to CLV.
	DiscountRate float64

	// LifespanFloorYears bounds the observed customer lifespan away
	// from zero for single-purchase customers.
	LifespanFloorYears float64

	// MinSupportCount is the minimum co-occurrence count for a product
	// pair to be reported.
	MinSupportCount int

	// Basket is the basket granularity.
	Basket Granularity
}

// DefaultConfig returns the default analytics configuration.
func DefaultConfig() Config {
	return Config{
		Bands:              5,
		ClassAShare:        0.70,
		ClassBShare:        0.90,
		DiscountRate:       0.10,
		LifespanFloorYears: 0.1,
		MinSupportCount:    3,
		Basket:             GranularityDay,
	}
}

func (c Config) reference(s *Snapshot) time.Time {
	if !c.ReferenceDate.IsZero() {
		return c.ReferenceDate
	}
	return s.TakenAt
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// monthOf formats a timestamp's UTC calendar month as "2006-01".
func monthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

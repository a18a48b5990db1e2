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
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

// Dimension specs for the star schema. Tracked attributes drive SCD2
// change detection; unit price is deliberately absent from the product
// spec because it varies per transaction line and would degenerate
// every load into spurious versions.
var (
	CustomerSpec = DimensionSpec{Name: DimCustomer, Tracked: []string{"country"}}
	ProductSpec  = DimensionSpec{Name: DimProduct, Tracked: []string{"description"}}
	StoreSpec    = DimensionSpec{Name: DimStore, Tracked: []string{"region"}}

	// Time attributes are pure functions of the natural key, so there
	// is nothing to track: resolution only ever reuses or inserts.
	TimeSpec = DimensionSpec{Name: DimTime}
)

// CustomerAttrs extracts the customer dimension attributes of a record.
func CustomerAttrs(r extract.Record) map[string]string {
	return map[string]string{"country": r.Country}
}

// ProductAttrs extracts the product dimension attributes of a record.
func ProductAttrs(r extract.Record) map[string]string {
	return map[string]string{"description": r.Description}
}

// StoreAttrs extracts the store dimension attributes of a record. The
// source has no point-of-sale identifier, so the sales region stands in
// as the store grain.
func StoreAttrs(r extract.Record) map[string]string {
	return map[string]string{"region": r.Country}
}

// TimeNaturalKey is the calendar-date natural key of the time dimension.
func TimeNaturalKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TimeAttrs derives the descriptive attributes of a calendar date.
func TimeAttrs(t time.Time) map[string]string {
	t = t.UTC()
	wd := t.Weekday()
	return map[string]string{
		"day":        fmt.Sprintf("%d", t.Day()),
		"month":      fmt.Sprintf("%d", int(t.Month())),
		"year":       fmt.Sprintf("%d", t.Year()),
		"quarter":    fmt.Sprintf("%d", (int(t.Month())-1)/3+1),
		"day_name":   wd.String(),
		"is_weekend": fmt.Sprintf("%t", wd == time.Saturday || wd == time.Sunday),
	}
}

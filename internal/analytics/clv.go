//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/money"
)

// CLVRow is one customer's lifetime value estimate.
type CLVRow struct {
	CustomerID        string
	PurchaseCount     int64
	AvgPurchaseValue  float64
	LifespanYears     float64
	PurchaseFrequency float64
	CLV               float64
	CLVDiscounted     float64
}

const daysPerYear = 365.25

// CLV estimates customer lifetime value as
//
//	avgPurchaseValue x purchaseFrequency x lifespanYears / (1+discountRate)^lifespanYears
//
// with purchaseFrequency = purchaseCount / lifespanYears. The observed
// lifespan is floored at LifespanFloorYears everywhere it appears, so
// single-purchase customers do not blow up the frequency term.
func CLV(s *Snapshot, cfg Config) ([]CLVRow, error) {
	if cfg.LifespanFloorYears <= 0 {
		return nil, fmt.Errorf("clv: lifespan floor must be positive, got %v", cfg.LifespanFloorYears)
	}
	if cfg.DiscountRate < 0 {
		return nil, fmt.Errorf("clv: discount rate must be non-negative, got %v", cfg.DiscountRate)
	}

	type agg struct {
		invoices    map[string]struct{}
		cents       int64
		first, last int64
	}
	byCustomer := make(map[string]*agg)
	for _, f := range s.Facts {
		a := byCustomer[f.CustomerID]
		if a == nil {
			a = &agg{invoices: make(map[string]struct{}), first: math.MaxInt64}
			byCustomer[f.CustomerID] = a
		}
		a.invoices[f.InvoiceNo] = struct{}{}
		a.cents += f.AmountCents
		if ts := f.InvoiceTS.Unix(); ts < a.first {
			a.first = ts
		}
		if ts := f.InvoiceTS.Unix(); ts > a.last {
			a.last = ts
		}
	}

	rows := make([]CLVRow, 0, len(byCustomer))
	for id, a := range byCustomer {
		rows = append(rows, CLVFromAggregate(id, int64(len(a.invoices)), a.cents,
			timeFromUnix(a.first), timeFromUnix(a.last), cfg))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerID < rows[j].CustomerID })
	return rows, nil
}

// CLVFromAggregate derives one CLV row from per-customer aggregates.
// The SQL pass aggregates in the warehouse and feeds the same
// derivation, so both passes share one formula.
func CLVFromAggregate(customerID string, purchaseCount, totalCents int64, first, last time.Time, cfg Config) CLVRow {
	lifespanDays := daysBetween(first, last)
	lifespan := math.Max(float64(lifespanDays)/daysPerYear, cfg.LifespanFloorYears)

	avg := money.Dollars(totalCents) / float64(purchaseCount)
	freq := float64(purchaseCount) / lifespan
	clv := avg * freq * lifespan
	discounted := clv / math.Pow(1+cfg.DiscountRate, lifespan)

	return CLVRow{
		CustomerID:        customerID,
		PurchaseCount:     purchaseCount,
		AvgPurchaseValue:  money.Round2(avg),
		LifespanYears:     lifespan,
		PurchaseFrequency: freq,
		CLV:               money.Round2(clv),
		CLVDiscounted:     money.Round2(discounted),
	}
}

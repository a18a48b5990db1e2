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
	"sort"

	"github.com/pgEdge/pgedge-retaildw/internal/money"
)

// RFMRow is one customer's recency/frequency/monetary profile.
type RFMRow struct {
	CustomerID  string
	RecencyDays int
	Frequency   int64
	Monetary    float64
	RScore      int
	FScore      int
	MScore      int
	Segment     string
}

// segmentRule maps a score-tuple range to a segment name. Rules are
// evaluated in order, first match wins; together they cover the whole
// score space.
type segmentRule struct {
	name                               string
	rMin, rMax, fMin, fMax, mMin, mMax int
}

var segmentRules = []segmentRule{
	{"Champions", 4, 5, 4, 5, 4, 5},
	{"Loyal Customers", 3, 5, 4, 5, 1, 5},
	{"Potential Loyalists", 4, 5, 2, 3, 1, 5},
	{"New Customers", 4, 5, 1, 1, 1, 5},
	{"Promising", 3, 3, 1, 1, 1, 5},
	{"Need Attention", 3, 3, 2, 3, 1, 5},
	{"About to Sleep", 2, 2, 1, 2, 1, 5},
	{"At Risk", 1, 2, 3, 5, 1, 5},
	{"Hibernating", 1, 2, 1, 2, 1, 5},
}

// Segment resolves a score tuple through the fixed rule table.
func Segment(r, f, m int) string {
	for _, rule := range segmentRules {
		if r >= rule.rMin && r <= rule.rMax &&
			f >= rule.fMin && f <= rule.fMax &&
			m >= rule.mMin && m <= rule.mMax {
			return rule.name
		}
	}
	return "Other"
}

// SegmentScaled resolves a score tuple banded over k quantiles, mapping
// the scores onto the 1..5 space the rule table is defined over. Shared
// with the SQL pass.
func SegmentScaled(r, f, m, k int) string {
	return Segment(scale5(r, k), scale5(f, k), scale5(m, k))
}

// RFM segments customers by recency, frequency and monetary value.
// Each dimension is scored independently by quantile banding with
// NTILE semantics; ties order by customer id so scoring is
// deterministic and matches the SQL twin.
func RFM(s *Snapshot, cfg Config) ([]RFMRow, error) {
	if cfg.Bands < 2 {
		return nil, fmt.Errorf("rfm: bands must be >= 2, got %d", cfg.Bands)
	}

	type agg struct {
		last     int64 // unix seconds of last purchase
		invoices map[string]struct{}
		cents    int64
	}
	byCustomer := make(map[string]*agg)
	for _, f := range s.Facts {
		a := byCustomer[f.CustomerID]
		if a == nil {
			a = &agg{invoices: make(map[string]struct{})}
			byCustomer[f.CustomerID] = a
		}
		if ts := f.InvoiceTS.Unix(); ts > a.last {
			a.last = ts
		}
		a.invoices[f.InvoiceNo] = struct{}{}
		a.cents += f.AmountCents
	}

	ref := cfg.reference(s)
	rows := make([]RFMRow, 0, len(byCustomer))
	for id, a := range byCustomer {
		rows = append(rows, RFMRow{
			CustomerID:  id,
			RecencyDays: daysBetween(timeFromUnix(a.last), ref),
			Frequency:   int64(len(a.invoices)),
			Monetary:    money.Dollars(a.cents),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerID < rows[j].CustomerID })

	k := cfg.Bands
	// Recency: lower is better, so the first band gets the top score.
	for i, b := range ntile(len(rows), k, func(i, j int) bool {
		if rows[i].RecencyDays != rows[j].RecencyDays {
			return rows[i].RecencyDays < rows[j].RecencyDays
		}
		return rows[i].CustomerID < rows[j].CustomerID
	}) {
		rows[i].RScore = k + 1 - b
	}
	for i, b := range ntile(len(rows), k, func(i, j int) bool {
		if rows[i].Frequency != rows[j].Frequency {
			return rows[i].Frequency < rows[j].Frequency
		}
		return rows[i].CustomerID < rows[j].CustomerID
	}) {
		rows[i].FScore = b
	}
	for i, b := range ntile(len(rows), k, func(i, j int) bool {
		if rows[i].Monetary != rows[j].Monetary {
			return rows[i].Monetary < rows[j].Monetary
		}
		return rows[i].CustomerID < rows[j].CustomerID
	}) {
		rows[i].MScore = b
	}

	for i := range rows {
		rows[i].Segment = SegmentScaled(rows[i].RScore, rows[i].FScore, rows[i].MScore, k)
	}
	return rows, nil
}

// ntile assigns each of n elements a bucket 1..k following SQL NTILE:
// elements are ranked by less, the first n%k buckets hold one extra
// element. The returned slice is indexed by element position.
func ntile(n, k int, less func(i, j int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return less(order[a], order[b]) })

	buckets := make([]int, n)
	if n == 0 {
		return buckets
	}
	if k > n {
		k = n
	}
	base := n / k
	extra := n % k
	pos := 0
	for b := 1; b <= k; b++ {
		size := base
		if b <= extra {
			size++
		}
		for i := 0; i < size; i++ {
			buckets[order[pos]] = b
			pos++
		}
	}
	return buckets
}

// scale5 maps a band score onto the 1..5 space the segment table is
// defined over, so non-default band counts still resolve to segments.
func scale5(score, k int) int {
	if k == 5 {
		return score
	}
	return (score-1)*5/k + 1
}

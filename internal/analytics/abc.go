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

// ABCRow is one product's revenue contribution and class.
type ABCRow struct {
	ProductID       string
	Description     string
	Revenue         float64
	Rank            int
	RevenueShare    float64
	CumulativeShare float64
	Class           string
}

// ABC classifies products by cumulative revenue share: Class A up to
// ClassAShare, Class B up to ClassBShare, Class C the remainder. Equal
// revenues order by product id so classification is deterministic.
// Threshold comparisons use exact decimal arithmetic; the published
// share columns are rounded to six fractional digits.
func ABC(s *Snapshot, cfg Config) ([]ABCRow, error) {
	if cfg.ClassAShare <= 0 || cfg.ClassBShare <= cfg.ClassAShare || cfg.ClassBShare > 1 {
		return nil, fmt.Errorf("abc: thresholds must satisfy 0 < A < B <= 1, got A=%v B=%v",
			cfg.ClassAShare, cfg.ClassBShare)
	}

	type agg struct {
		cents int64
		desc  string
	}
	byProduct := make(map[string]*agg)
	var total int64
	for _, f := range s.Facts {
		a := byProduct[f.ProductID]
		if a == nil {
			a = &agg{}
			byProduct[f.ProductID] = a
		}
		a.cents += f.AmountCents
		// Lexicographic max, matching MAX(description) in the SQL twin.
		if f.Description > a.desc {
			a.desc = f.Description
		}
		total += f.AmountCents
	}

	rows := make([]ABCRow, 0, len(byProduct))
	cents := make(map[string]int64, len(byProduct))
	for id, a := range byProduct {
		rows = append(rows, ABCRow{ProductID: id, Description: a.desc, Revenue: money.Dollars(a.cents)})
		cents[id] = a.cents
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := cents[rows[i].ProductID], cents[rows[j].ProductID]
		if a != b {
			return a > b
		}
		return rows[i].ProductID < rows[j].ProductID
	})

	var cum int64
	for i := range rows {
		c := cents[rows[i].ProductID]
		cum += c
		rows[i].Rank = i + 1
		rows[i].RevenueShare, rows[i].CumulativeShare, rows[i].Class = ABCClassify(c, cum, total, cfg)
	}
	return rows, nil
}

// ABCClassify computes the share columns and class for one ranked
// product given its revenue, the running cumulative revenue and the
// grand total, all in cents. Shared with the SQL pass.
func ABCClassify(revenueCents, cumCents, totalCents int64, cfg Config) (revShare, cumShare float64, class string) {
	revShare = money.Share(revenueCents, totalCents)
	cumShare = money.Share(cumCents, totalCents)
	switch {
	case money.ShareLE(cumCents, totalCents, cfg.ClassAShare):
		class = "A"
	case money.ShareLE(cumCents, totalCents, cfg.ClassBShare):
		class = "B"
	default:
		class = "C"
	}
	return revShare, cumShare, class
}

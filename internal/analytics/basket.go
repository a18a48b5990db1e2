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

// BasketRow is one product pair that co-occurs in at least
// MinSupportCount baskets.
type BasketRow struct {
	ProductA     string
	ProductB     string
	PairCount    int64
	Support      float64
	ConfidenceAB float64
	ConfidenceBA float64
}

// Basket finds product pairs frequently bought together. A basket is
// one customer's purchases within one time bucket (or one invoice),
// per the configured granularity. Pairs are canonicalized with
// ProductA < ProductB so each unordered pair is counted once.
func Basket(s *Snapshot, cfg Config) ([]BasketRow, error) {
	if cfg.MinSupportCount < 1 {
		return nil, fmt.Errorf("basket: min support count must be >= 1, got %d", cfg.MinSupportCount)
	}

	baskets := make(map[string]map[string]struct{})
	for _, f := range s.Facts {
		key, err := basketKey(f, cfg.Basket)
		if err != nil {
			return nil, err
		}
		set := baskets[key]
		if set == nil {
			set = make(map[string]struct{})
			baskets[key] = set
		}
		set[f.ProductID] = struct{}{}
	}
	totalBaskets := int64(len(baskets))

	type pair struct{ a, b string }
	pairCounts := make(map[pair]int64)
	itemCounts := make(map[string]int64)
	for _, set := range baskets {
		items := make([]string, 0, len(set))
		for p := range set {
			items = append(items, p)
		}
		sort.Strings(items)
		for _, p := range items {
			itemCounts[p]++
		}
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				pairCounts[pair{items[i], items[j]}]++
			}
		}
	}

	rows := make([]BasketRow, 0)
	for p, count := range pairCounts {
		if count < int64(cfg.MinSupportCount) {
			continue
		}
		rows = append(rows, BasketRow{
			ProductA:     p.a,
			ProductB:     p.b,
			PairCount:    count,
			Support:      money.Share(count, totalBaskets),
			ConfidenceAB: money.Share(count, itemCounts[p.a]),
			ConfidenceBA: money.Share(count, itemCounts[p.b]),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductA != rows[j].ProductA {
			return rows[i].ProductA < rows[j].ProductA
		}
		return rows[i].ProductB < rows[j].ProductB
	})
	return rows, nil
}

func basketKey(f Fact, g Granularity) (string, error) {
	switch g {
	case GranularityInvoice:
		return f.InvoiceNo, nil
	case GranularityDay:
		return f.CustomerID + "|" + dateOf(f.InvoiceTS).Format("2006-01-02"), nil
	case GranularityMonth:
		return f.CustomerID + "|" + monthOf(f.InvoiceTS), nil
	default:
		return "", fmt.Errorf("basket: unknown granularity %q", g)
	}
}

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
	"sort"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/money"
)

// CohortRow is one cell of the retention matrix: the fraction of a
// cohort active in the month at the given offset from the cohort month.
type CohortRow struct {
	CohortMonth     string
	MonthOffset     int
	ActiveCustomers int
	CohortSize      int
	Retention       float64
}

// Cohort groups customers by the calendar month of their first purchase
// and reports, per month offset, the fraction of the cohort with at
// least one purchase in that month. Offset 0 is 1.0 by construction.
func Cohort(s *Snapshot, cfg Config) ([]CohortRow, error) {
	// First purchase month per customer.
	firstMonth := make(map[string]time.Time)
	for _, f := range s.Facts {
		m := startOfMonth(f.InvoiceTS)
		if cur, ok := firstMonth[f.CustomerID]; !ok || m.Before(cur) {
			firstMonth[f.CustomerID] = m
		}
	}

	cohortSize := make(map[string]int)
	for _, m := range firstMonth {
		cohortSize[monthOf(m)]++
	}

	// Distinct (cohort, offset, customer) activity.
	type cell struct {
		cohort string
		offset int
	}
	active := make(map[cell]map[string]struct{})
	for _, f := range s.Facts {
		first := firstMonth[f.CustomerID]
		c := cell{
			cohort: monthOf(first),
			offset: monthsBetween(first, startOfMonth(f.InvoiceTS)),
		}
		set := active[c]
		if set == nil {
			set = make(map[string]struct{})
			active[c] = set
		}
		set[f.CustomerID] = struct{}{}
	}

	rows := make([]CohortRow, 0, len(active))
	for c, set := range active {
		size := cohortSize[c.cohort]
		rows = append(rows, CohortRow{
			CohortMonth:     c.cohort,
			MonthOffset:     c.offset,
			ActiveCustomers: len(set),
			CohortSize:      size,
			Retention:       money.Share(int64(len(set)), int64(size)),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CohortMonth != rows[j].CohortMonth {
			return rows[i].CohortMonth < rows[j].CohortMonth
		}
		return rows[i].MonthOffset < rows[j].MonthOffset
	})
	return rows, nil
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

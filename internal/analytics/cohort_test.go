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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCohort(t *testing.T) {
	jan := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	s := &Snapshot{Facts: []Fact{
		// January cohort: two customers, one returns in February, both
		// in March.
		fact("c1", "I1", "P1", jan, 1000),
		fact("c2", "I2", "P1", jan, 1000),
		fact("c1", "I3", "P1", feb, 1000),
		fact("c1", "I4", "P1", mar, 1000),
		fact("c2", "I5", "P1", mar, 1000),
		// February cohort: one customer, never returns.
		fact("c3", "I6", "P1", feb, 1000),
	}}

	rows, err := Cohort(s, DefaultConfig())
	require.NoError(t, err)

	type cell struct {
		active, size int
		retention    float64
	}
	got := make(map[string]map[int]cell)
	for _, r := range rows {
		if got[r.CohortMonth] == nil {
			got[r.CohortMonth] = make(map[int]cell)
		}
		got[r.CohortMonth][r.MonthOffset] = cell{r.ActiveCustomers, r.CohortSize, r.Retention}
	}

	require.Equal(t, cell{2, 2, 1.0}, got["2024-01"][0])
	require.Equal(t, cell{1, 2, 0.5}, got["2024-01"][1])
	require.Equal(t, cell{2, 2, 1.0}, got["2024-01"][2])
	require.Equal(t, cell{1, 1, 1.0}, got["2024-02"][0])

	// No activity cell for February cohort at offset 1.
	_, ok := got["2024-02"][1]
	require.False(t, ok)

	// Rows sorted by cohort month then offset.
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		require.True(t, prev.CohortMonth < cur.CohortMonth ||
			(prev.CohortMonth == cur.CohortMonth && prev.MonthOffset < cur.MonthOffset))
	}
}

func TestCohortOffsetZeroIsFull(t *testing.T) {
	// Every customer is active in their own first month, so offset 0
	// retention is 1.0 for every cohort.
	ts := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	s := &Snapshot{Facts: []Fact{
		fact("c1", "I1", "P1", ts, 1000),
		fact("c2", "I2", "P1", ts.AddDate(0, 1, 0), 1000),
		fact("c3", "I3", "P1", ts.AddDate(0, 3, 0), 1000),
	}}

	rows, err := Cohort(s, DefaultConfig())
	require.NoError(t, err)
	for _, r := range rows {
		if r.MonthOffset == 0 {
			require.Equal(t, 1.0, r.Retention, "cohort %s", r.CohortMonth)
		}
	}
}

func TestCohortYearBoundary(t *testing.T) {
	dec := time.Date(2023, 12, 20, 10, 0, 0, 0, time.UTC)
	jan := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	s := &Snapshot{Facts: []Fact{
		fact("c1", "I1", "P1", dec, 1000),
		fact("c1", "I2", "P1", jan, 1000),
	}}
	rows, err := Cohort(s, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2023-12", rows[0].CohortMonth)
	require.Equal(t, 1, rows[1].MonthOffset)
}

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

func abcSnapshot(revenues map[string]int64) *Snapshot {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &Snapshot{}
	for product, cents := range revenues {
		s.Facts = append(s.Facts, fact("17850", "I-"+product, product, ts, cents))
	}
	return s
}

func TestABCClassification(t *testing.T) {
	// Revenues 500, 300, 150, 50: cumulative shares 0.50, 0.80, 0.95,
	// 1.00 against boundaries 0.70/0.90 give A, B, C, C.
	rows, err := ABC(abcSnapshot(map[string]int64{
		"P1": 50000, "P2": 30000, "P3": 15000, "P4": 5000,
	}), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.Equal(t, "P1", rows[0].ProductID)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, 500.0, rows[0].Revenue)
	require.Equal(t, 0.5, rows[0].RevenueShare)
	require.Equal(t, "A", rows[0].Class)

	require.Equal(t, "B", rows[1].Class)
	require.Equal(t, "C", rows[2].Class)
	require.Equal(t, "C", rows[3].Class)
	require.Equal(t, 1.0, rows[3].CumulativeShare)
}

func TestABCExactBoundary(t *testing.T) {
	// Cumulative share exactly at a boundary belongs to the lower
	// class: 70/100 == ClassAShare stays in A.
	rows, err := ABC(abcSnapshot(map[string]int64{
		"P1": 7000, "P2": 2000, "P3": 1000,
	}), DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, "A", rows[0].Class) // 0.70 exactly
	require.Equal(t, "B", rows[1].Class) // 0.90 exactly
	require.Equal(t, "C", rows[2].Class)
}

func TestABCTieBreaksByProductID(t *testing.T) {
	rows, err := ABC(abcSnapshot(map[string]int64{
		"P3": 10000, "P1": 10000, "P2": 10000,
	}), DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, []string{"P1", "P2", "P3"},
		[]string{rows[0].ProductID, rows[1].ProductID, rows[2].ProductID})
	require.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
}

func TestABCAggregatesAcrossLines(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &Snapshot{Facts: []Fact{
		fact("17850", "I1", "P1", ts, 5000),
		fact("13047", "I2", "P1", ts.Add(time.Hour), 5000),
		fact("17850", "I3", "P2", ts, 3000),
	}}
	rows, err := ABC(s, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 100.0, rows[0].Revenue)
	require.Equal(t, "P1", rows[0].ProductID)
}

func TestABCEmptySnapshot(t *testing.T) {
	rows, err := ABC(&Snapshot{}, DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestABCClassifyShares(t *testing.T) {
	rev, cum, class := ABCClassify(15000, 15000, 100000, DefaultConfig())
	require.Equal(t, 0.15, rev)
	require.Equal(t, 0.15, cum)
	require.Equal(t, "A", class)
}

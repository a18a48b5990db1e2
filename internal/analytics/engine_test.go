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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func engineSnapshot() *Snapshot {
	start := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	s := &Snapshot{TakenAt: start.AddDate(0, 6, 0)}
	for c := 0; c < 8; c++ {
		customer := fmt.Sprintf("c%02d", c)
		for inv := 0; inv <= c; inv++ {
			ts := start.AddDate(0, 0, c*7+inv*3)
			invoice := fmt.Sprintf("%s-%d", customer, inv)
			s.Facts = append(s.Facts,
				fact(customer, invoice, fmt.Sprintf("P%d", inv%4), ts, int64(1000+100*c)),
				fact(customer, invoice, fmt.Sprintf("P%d", (inv+1)%4), ts, 500),
			)
		}
	}
	return s
}

func TestEngineRunAllModules(t *testing.T) {
	res := NewEngine(DefaultConfig()).Run(engineSnapshot())

	require.Empty(t, res.Errors)
	require.NotEmpty(t, res.RFM)
	require.NotEmpty(t, res.ABC)
	require.NotEmpty(t, res.CLV)
	require.NotEmpty(t, res.Cohort)
	require.NotEmpty(t, res.Basket)

	require.Len(t, res.RFM, 8)
	require.Len(t, res.CLV, 8)
	for _, m := range Modules {
		require.False(t, res.Failed(m))
	}
}

func TestEngineIsolatesModuleFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = 1 // rfm rejects this

	res := NewEngine(cfg).Run(engineSnapshot())

	require.True(t, res.Failed(ModuleRFM))
	require.Nil(t, res.RFM)

	// The other modules are unaffected.
	require.False(t, res.Failed(ModuleABC))
	require.NotEmpty(t, res.ABC)
	require.False(t, res.Failed(ModuleCLV))
	require.NotEmpty(t, res.CLV)
}

func TestEngineDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceDate = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	first := NewEngine(cfg).Run(engineSnapshot())
	require.Empty(t, first.Errors)
	for i := 0; i < 5; i++ {
		again := NewEngine(cfg).Run(engineSnapshot())
		require.Equal(t, first.RFM, again.RFM)
		require.Equal(t, first.ABC, again.ABC)
		require.Equal(t, first.CLV, again.CLV)
		require.Equal(t, first.Cohort, again.Cohort)
		require.Equal(t, first.Basket, again.Basket)
	}
}

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
	"sync"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/logging"
	"github.com/pgEdge/pgedge-retaildw/internal/metrics"
)

// Module names, used for metrics, publishing and error reporting.
const (
	ModuleRFM    = "rfm"
	ModuleABC    = "abc"
	ModuleCLV    = "clv"
	ModuleCohort = "cohort"
	ModuleBasket = "basket"
)

// Modules lists the five analytics modules.
var Modules = []string{ModuleRFM, ModuleABC, ModuleCLV, ModuleCohort, ModuleBasket}

// Results holds the output of one analytics run. A module that failed
// has a nil result slice and an entry in Errors; the other modules are
// unaffected.
type Results struct {
	RFM    []RFMRow
	ABC    []ABCRow
	CLV    []CLVRow
	Cohort []CohortRow
	Basket []BasketRow
	Errors map[string]error
}

// Failed reports whether the named module failed.
func (r *Results) Failed(module string) bool {
	_, ok := r.Errors[module]
	return ok
}

// Engine runs the five modules over one snapshot. The modules have no
// data dependency on each other and run concurrently; the snapshot is
// read-only so no synchronization beyond completion is needed.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run computes all five modules. It always returns a Results; per-
// module failures are recorded in Results.Errors rather than aborting
// the run.
func (e *Engine) Run(s *Snapshot) *Results {
	res := &Results{Errors: make(map[string]error)}

	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(module string, compute func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := compute()
			metrics.AnalyticsDuration.WithLabelValues(module).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.AnalyticsFailures.WithLabelValues(module).Inc()
				logging.Error().Err(err).Str("module", module).Msg("Analytics module failed")
				mu.Lock()
				res.Errors[module] = err
				mu.Unlock()
				return
			}
			logging.Debug().
				Str("module", module).
				Dur("elapsed", time.Since(start)).
				Msg("Analytics module complete")
		}()
	}

	run(ModuleRFM, func() (err error) {
		res.RFM, err = RFM(s, e.cfg)
		return
	})
	run(ModuleABC, func() (err error) {
		res.ABC, err = ABC(s, e.cfg)
		return
	})
	run(ModuleCLV, func() (err error) {
		res.CLV, err = CLV(s, e.cfg)
		return
	})
	run(ModuleCohort, func() (err error) {
		res.Cohort, err = Cohort(s, e.cfg)
		return
	})
	run(ModuleBasket, func() (err error) {
		res.Basket, err = Basket(s, e.cfg)
		return
	})

	wg.Wait()
	return res
}

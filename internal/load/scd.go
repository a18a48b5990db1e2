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
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/metrics"
)

// Action is the outcome of resolving an incoming attribute set against
// the current dimension state.
type Action int

const (
	// ActionReuse keeps the existing current version.
	ActionReuse Action = iota
	// ActionInsert opens a first version for an unseen natural key.
	ActionInsert
	// ActionSupersede closes the current version and opens a new one.
	ActionSupersede
)

// DimensionSpec describes one dimension's SCD2 behavior. Only Tracked
// attributes participate in change detection; everything else is
// volatile and must not trigger new versions.
type DimensionSpec struct {
	Name    string
	Tracked []string
}

// Resolve decides what to do with an incoming attribute set. It is a
// pure function so the SCD2 decision logic is testable without a
// warehouse.
func Resolve(current *Version, attrs map[string]string, tracked []string) Action {
	if current == nil {
		return ActionInsert
	}
	for _, k := range tracked {
		if current.Attributes[k] != attrs[k] {
			return ActionSupersede
		}
	}
	return ActionReuse
}

// DimensionLoader resolves natural keys to surrogate keys for one
// dimension, maintaining the SCD2 invariants: at most one current
// version per natural key, contiguous non-overlapping validity
// intervals.
type DimensionLoader struct {
	store DimensionStore
	spec  DimensionSpec

	// current maps natural key to the current version so lookups never
	// scan historical versions.
	current map[string]Version

	opened int64
}

// NewDimensionLoader builds a loader primed with the dimension's
// current state.
func NewDimensionLoader(ctx context.Context, store DimensionStore, spec DimensionSpec) (*DimensionLoader, error) {
	current, err := store.CurrentVersions(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("load current %s versions: %w", spec.Name, err)
	}
	if current == nil {
		current = make(map[string]Version)
	}
	return &DimensionLoader{store: store, spec: spec, current: current}, nil
}

// Apply resolves one incoming attribute set to a surrogate key as of
// the given instant. A supersede closes the old version and opens the
// new one; both writes run in the surrounding load transaction.
func (l *DimensionLoader) Apply(ctx context.Context, naturalKey string, attrs map[string]string, asOf time.Time) (int64, error) {
	var cur *Version
	if v, ok := l.current[naturalKey]; ok {
		cur = &v
	}

	switch Resolve(cur, attrs, l.spec.Tracked) {
	case ActionReuse:
		return cur.SurrogateKey, nil

	case ActionSupersede:
		// A record dated at or before the current version's start is a
		// historical replay (full reload), not a change: the attribute
		// difference was already superseded when the later version
		// opened. Closing the current version at asOf would invert its
		// validity interval, so reuse its key instead.
		if !asOf.After(cur.EffectiveFrom) {
			return cur.SurrogateKey, nil
		}
		if err := l.store.CloseVersion(ctx, l.spec.Name, cur.SurrogateKey, asOf); err != nil {
			return 0, fmt.Errorf("close %s version for %q: %w", l.spec.Name, naturalKey, err)
		}
		fallthrough

	default: // ActionInsert
		key, err := l.store.OpenVersion(ctx, l.spec.Name, naturalKey, attrs, asOf)
		if err != nil {
			return 0, fmt.Errorf("open %s version for %q: %w", l.spec.Name, naturalKey, err)
		}
		l.current[naturalKey] = Version{
			SurrogateKey:  key,
			NaturalKey:    naturalKey,
			Attributes:    attrs,
			EffectiveFrom: asOf,
		}
		l.opened++
		metrics.DimVersionsOpened.WithLabelValues(l.spec.Name).Inc()
		return key, nil
	}
}

// Opened returns the number of versions opened by this loader.
func (l *DimensionLoader) Opened() int64 { return l.opened }

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
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-retaildw/internal/validate"
)

// Dimension names. These double as the dimension table suffixes in the
// warehouse (dim_customer, dim_product, ...).
const (
	DimCustomer = "customer"
	DimProduct  = "product"
	DimStore    = "store"
	DimTime     = "time"
)

// Version is one SCD2 dimension row.
type Version struct {
	SurrogateKey  int64
	NaturalKey    string
	Attributes    map[string]string
	EffectiveFrom time.Time
}

// DimensionStore persists dimension versions. Implementations run
// inside the load transaction, so a Supersede (CloseVersion followed by
// OpenVersion) is atomic with the rest of the run.
type DimensionStore interface {
	// CurrentVersions returns the current version per natural key.
	CurrentVersions(ctx context.Context, dimension string) (map[string]Version, error)

	// OpenVersion inserts a new current version effective from the
	// given instant and returns its surrogate key.
	OpenVersion(ctx context.Context, dimension, naturalKey string, attrs map[string]string, from time.Time) (int64, error)

	// CloseVersion ends the validity of a version at the given instant
	// and clears its current flag.
	CloseVersion(ctx context.Context, dimension string, surrogateKey int64, to time.Time) error
}

// Fact is one resolved fact row ready for insertion.
type Fact struct {
	CustomerKey int64
	ProductKey  int64
	StoreKey    int64
	TimeKey     int64

	// Natural identity of the transaction line; the warehouse enforces
	// uniqueness on (InvoiceNo, ProductID) so re-runs insert nothing.
	InvoiceNo string
	ProductID string

	Quantity       int64
	AmountCents    int64
	UnitPriceCents int64
	InvoiceTS      time.Time
}

// FactStore persists fact rows.
type FactStore interface {
	// InsertFact inserts the fact unless its natural identity is
	// already loaded. Returns false when the row was skipped.
	InsertFact(ctx context.Context, f Fact) (bool, error)
}

// LoadTx is the write surface available inside one load transaction.
// Either everything commits (including the watermark advance) or
// nothing does.
type LoadTx interface {
	DimensionStore
	FactStore

	// RecordRejections persists quality-gate rejections for reporting.
	RecordRejections(ctx context.Context, batchID uuid.UUID, source string, rejected []validate.Rejected) error

	// AdvanceWatermark stages the new cursor for the source; it becomes
	// visible only when the transaction commits.
	AdvanceWatermark(ctx context.Context, source string, c Cursor, processed, rejected int64) error
}

// Warehouse is the load pipeline's view of the warehouse.
type Warehouse interface {
	// Watermark returns the current cursor for a source; a zero Cursor
	// means no load has committed yet.
	Watermark(ctx context.Context, source string) (Cursor, error)

	// RunLoad executes fn inside a single transaction holding the
	// per-source load lock. fn returning an error rolls everything
	// back, leaving warehouse and watermark in their pre-run state.
	RunLoad(ctx context.Context, source string, fn func(tx LoadTx) error) error
}

// BatchLog records pipeline run history.
type BatchLog interface {
	StartBatch(ctx context.Context, batchID uuid.UUID, pipeline, source string, startedAt time.Time) error
	FinishBatch(ctx context.Context, batchID uuid.UUID, status string, read, inserted, skipped, rejected int64, errMsg string) error
}

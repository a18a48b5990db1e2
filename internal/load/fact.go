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
	"sort"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

// FactLoader maps accepted records to dimension surrogate keys and
// inserts fact rows exactly once per natural transaction identity.
type FactLoader struct {
	facts FactStore

	customers *DimensionLoader
	products  *DimensionLoader
	stores    *DimensionLoader
	times     *DimensionLoader
}

// NewFactLoader primes the four dimension loaders against the store.
func NewFactLoader(ctx context.Context, tx LoadTx) (*FactLoader, error) {
	customers, err := NewDimensionLoader(ctx, tx, CustomerSpec)
	if err != nil {
		return nil, err
	}
	products, err := NewDimensionLoader(ctx, tx, ProductSpec)
	if err != nil {
		return nil, err
	}
	stores, err := NewDimensionLoader(ctx, tx, StoreSpec)
	if err != nil {
		return nil, err
	}
	times, err := NewDimensionLoader(ctx, tx, TimeSpec)
	if err != nil {
		return nil, err
	}
	return &FactLoader{
		facts:     tx,
		customers: customers,
		products:  products,
		stores:    stores,
		times:     times,
	}, nil
}

// SortBySourcePosition orders records by (invoice timestamp, invoice
// number, source row) so the watermark only ever advances monotonically
// while loading.
func SortBySourcePosition(records []extract.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		if a.InvoiceNo != b.InvoiceNo {
			return a.InvoiceNo < b.InvoiceNo
		}
		return a.Position < b.Position
	})
}

// Load resolves and inserts the given records, which must already be
// validated. Records whose natural identity is already in the
// warehouse are counted as skipped. Returns the cursor covering the
// batch's maximum position.
func (fl *FactLoader) Load(ctx context.Context, records []extract.Record, floor Cursor) (inserted, skipped int64, cursor Cursor, err error) {
	SortBySourcePosition(records)
	cursor = floor

	for _, r := range records {
		fact, err := fl.resolve(ctx, r)
		if err != nil {
			return inserted, skipped, floor, &Error{
				Invoice:  r.InvoiceNo,
				Position: r.Position,
				Err:      err,
			}
		}

		ok, err := fl.facts.InsertFact(ctx, fact)
		if err != nil {
			return inserted, skipped, floor, &Error{
				Invoice:  r.InvoiceNo,
				Position: r.Position,
				Err:      fmt.Errorf("insert fact: %w", err),
			}
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
		cursor = cursor.Observe(r)
	}
	return inserted, skipped, cursor, nil
}

func (fl *FactLoader) resolve(ctx context.Context, r extract.Record) (Fact, error) {
	asOf := r.InvoiceDate

	timeKey, err := fl.times.Apply(ctx, TimeNaturalKey(r.InvoiceDate), TimeAttrs(r.InvoiceDate), asOf)
	if err != nil {
		return Fact{}, err
	}
	customerKey, err := fl.customers.Apply(ctx, r.CustomerID, CustomerAttrs(r), asOf)
	if err != nil {
		return Fact{}, err
	}
	productKey, err := fl.products.Apply(ctx, r.StockCode, ProductAttrs(r), asOf)
	if err != nil {
		return Fact{}, err
	}
	storeKey, err := fl.stores.Apply(ctx, r.Country, StoreAttrs(r), asOf)
	if err != nil {
		return Fact{}, err
	}

	return Fact{
		CustomerKey:    customerKey,
		ProductKey:     productKey,
		StoreKey:       storeKey,
		TimeKey:        timeKey,
		InvoiceNo:      r.InvoiceNo,
		ProductID:      r.StockCode,
		Quantity:       r.Quantity,
		AmountCents:    r.AmountCents(),
		UnitPriceCents: r.UnitPriceCents,
		InvoiceTS:      r.InvoiceDate,
	}, nil
}

// VersionsOpened reports versions opened per dimension during the load.
func (fl *FactLoader) VersionsOpened() map[string]int64 {
	return map[string]int64{
		DimCustomer: fl.customers.Opened(),
		DimProduct:  fl.products.Opened(),
		DimStore:    fl.stores.Opened(),
		DimTime:     fl.times.Opened(),
	}
}

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retaildw/internal/analytics"
)

// Snapshot reads the fact table joined to its dimension versions under
// repeatable read, so the in-engine analytics pass and any concurrent
// load see disjoint states. Amounts come back as exact cents.
func (s *Store) Snapshot(ctx context.Context) (*analytics.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snap := &analytics.Snapshot{}
	if err := tx.QueryRow(ctx, `SELECT now()`).Scan(&snap.TakenAt); err != nil {
		return nil, fmt.Errorf("read snapshot time: %w", err)
	}
	snap.TakenAt = snap.TakenAt.UTC()

	rows, err := tx.Query(ctx, `
		SELECT c.customer_id, p.stock_code, p.description, st.store_id,
		       f.invoice_no, f.invoice_ts, f.quantity, (f.line_amount * 100)::bigint
		FROM fact_sales f
		JOIN dim_customer c ON c.customer_key = f.customer_key
		JOIN dim_product p ON p.product_key = f.product_key
		JOIN dim_store st ON st.store_key = f.store_key
		ORDER BY f.invoice_no, p.stock_code`)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f analytics.Fact
		err := rows.Scan(&f.CustomerID, &f.ProductID, &f.Description, &f.StoreID,
			&f.InvoiceNo, &f.InvoiceTS, &f.Quantity, &f.AmountCents)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.InvoiceTS = f.InvoiceTS.UTC()
		snap.Facts = append(snap.Facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, tx.Commit(ctx)
}

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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retaildw/internal/analytics"
	"github.com/pgEdge/pgedge-retaildw/internal/logging"
	"github.com/pgEdge/pgedge-retaildw/internal/metrics"
	"github.com/pgEdge/pgedge-retaildw/internal/money"
)

// AnalyticsSQL computes the five analytics modules in SQL, inside one
// repeatable-read read-only transaction. Amounts aggregate as exact
// cents and ties break on natural keys, so the rows match the
// in-engine pass over the same warehouse state. Per-module failures
// are recorded in Results.Errors rather than aborting the run.
func (s *Store) AnalyticsSQL(ctx context.Context, cfg analytics.Config) (*analytics.Results, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin analytics transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ref := cfg.ReferenceDate
	if ref.IsZero() {
		if err := tx.QueryRow(ctx, `SELECT now()`).Scan(&ref); err != nil {
			return nil, fmt.Errorf("read reference time: %w", err)
		}
		ref = ref.UTC()
	}

	res := &analytics.Results{Errors: make(map[string]error)}

	run := func(module string, compute func() error) {
		start := time.Now()
		err := compute()
		metrics.AnalyticsDuration.WithLabelValues(module).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AnalyticsFailures.WithLabelValues(module).Inc()
			logging.Error().Err(err).Str("module", module).Msg("Analytics SQL module failed")
			res.Errors[module] = err
		}
	}

	run(analytics.ModuleRFM, func() (err error) {
		res.RFM, err = rfmSQL(ctx, tx, ref, cfg)
		return
	})
	run(analytics.ModuleABC, func() (err error) {
		res.ABC, err = abcSQL(ctx, tx, cfg)
		return
	})
	run(analytics.ModuleCLV, func() (err error) {
		res.CLV, err = clvSQL(ctx, tx, cfg)
		return
	})
	run(analytics.ModuleCohort, func() (err error) {
		res.Cohort, err = cohortSQL(ctx, tx)
		return
	})
	run(analytics.ModuleBasket, func() (err error) {
		res.Basket, err = basketSQL(ctx, tx, cfg)
		return
	})
	return res, nil
}

// rfmSQL scores customers with NTILE windows. Each window orders by
// the metric then the customer id, matching the engine's tie-break.
func rfmSQL(ctx context.Context, tx pgx.Tx, ref time.Time, cfg analytics.Config) ([]analytics.RFMRow, error) {
	if cfg.Bands < 2 {
		return nil, fmt.Errorf("rfm: bands must be >= 2, got %d", cfg.Bands)
	}

	rows, err := tx.Query(ctx, `
		WITH per_customer AS (
		    SELECT c.customer_id,
		           (($1::timestamptz AT TIME ZONE 'UTC')::date
		            - (max(f.invoice_ts) AT TIME ZONE 'UTC')::date) AS recency_days,
		           count(DISTINCT f.invoice_no) AS frequency,
		           sum((f.line_amount * 100)::bigint) AS cents
		    FROM fact_sales f
		    JOIN dim_customer c ON c.customer_key = f.customer_key
		    GROUP BY c.customer_id
		)
		SELECT customer_id, recency_days, frequency, cents,
		       ntile($2) OVER (ORDER BY recency_days, customer_id) AS r_band,
		       ntile($2) OVER (ORDER BY frequency, customer_id) AS f_band,
		       ntile($2) OVER (ORDER BY cents, customer_id) AS m_band
		FROM per_customer
		ORDER BY customer_id`, ref, cfg.Bands)
	if err != nil {
		return nil, fmt.Errorf("rfm query: %w", err)
	}
	defer rows.Close()

	k := cfg.Bands
	out := make([]analytics.RFMRow, 0)
	for rows.Next() {
		var r analytics.RFMRow
		var cents int64
		var rBand int
		if err := rows.Scan(&r.CustomerID, &r.RecencyDays, &r.Frequency, &cents, &rBand, &r.FScore, &r.MScore); err != nil {
			return nil, fmt.Errorf("scan rfm row: %w", err)
		}
		r.Monetary = money.Dollars(cents)
		// Lower recency band means more recent, so the score reverses.
		r.RScore = k + 1 - rBand
		r.Segment = analytics.SegmentScaled(r.RScore, r.FScore, r.MScore, k)
		out = append(out, r)
	}
	return out, rows.Err()
}

// abcSQL ranks products by revenue. The shares and the class come from
// the same exact-cents helpers the engine uses, so class boundaries
// cannot drift between the passes.
func abcSQL(ctx context.Context, tx pgx.Tx, cfg analytics.Config) ([]analytics.ABCRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.stock_code, max(p.description) AS description,
		       sum((f.line_amount * 100)::bigint) AS cents
		FROM fact_sales f
		JOIN dim_product p ON p.product_key = f.product_key
		GROUP BY p.stock_code
		ORDER BY cents DESC, stock_code`)
	if err != nil {
		return nil, fmt.Errorf("abc query: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.ABCRow, 0)
	var cents []int64
	var total int64
	for rows.Next() {
		var r analytics.ABCRow
		var c int64
		if err := rows.Scan(&r.ProductID, &r.Description, &c); err != nil {
			return nil, fmt.Errorf("scan abc row: %w", err)
		}
		r.Revenue = money.Dollars(c)
		out = append(out, r)
		cents = append(cents, c)
		total += c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var cum int64
	for i := range out {
		cum += cents[i]
		out[i].Rank = i + 1
		out[i].RevenueShare, out[i].CumulativeShare, out[i].Class = analytics.ABCClassify(cents[i], cum, total, cfg)
	}
	return out, nil
}

// clvSQL aggregates per customer and feeds the engine's CLV formula,
// so the two passes share every rounding decision.
func clvSQL(ctx context.Context, tx pgx.Tx, cfg analytics.Config) ([]analytics.CLVRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT c.customer_id,
		       count(DISTINCT f.invoice_no) AS purchase_count,
		       sum((f.line_amount * 100)::bigint) AS cents,
		       min(f.invoice_ts) AS first_ts,
		       max(f.invoice_ts) AS last_ts
		FROM fact_sales f
		JOIN dim_customer c ON c.customer_key = f.customer_key
		GROUP BY c.customer_id
		ORDER BY c.customer_id`)
	if err != nil {
		return nil, fmt.Errorf("clv query: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.CLVRow, 0)
	for rows.Next() {
		var id string
		var count, cents int64
		var first, last time.Time
		if err := rows.Scan(&id, &count, &cents, &first, &last); err != nil {
			return nil, fmt.Errorf("scan clv row: %w", err)
		}
		out = append(out, analytics.CLVFromAggregate(id, count, cents, first.UTC(), last.UTC(), cfg))
	}
	return out, rows.Err()
}

// cohortSQL computes monthly retention per first-purchase cohort.
func cohortSQL(ctx context.Context, tx pgx.Tx) ([]analytics.CohortRow, error) {
	rows, err := tx.Query(ctx, `
		WITH firsts AS (
		    SELECT c.customer_id,
		           date_trunc('month', min(f.invoice_ts AT TIME ZONE 'UTC')) AS cohort_month
		    FROM fact_sales f
		    JOIN dim_customer c ON c.customer_key = f.customer_key
		    GROUP BY c.customer_id
		),
		sizes AS (
		    SELECT cohort_month, count(*) AS cohort_size
		    FROM firsts
		    GROUP BY cohort_month
		),
		activity AS (
		    SELECT DISTINCT c.customer_id,
		           date_trunc('month', f.invoice_ts AT TIME ZONE 'UTC') AS active_month
		    FROM fact_sales f
		    JOIN dim_customer c ON c.customer_key = f.customer_key
		)
		SELECT to_char(fi.cohort_month, 'YYYY-MM') AS cohort_month,
		       ((extract(year FROM a.active_month) - extract(year FROM fi.cohort_month)) * 12
		        + (extract(month FROM a.active_month) - extract(month FROM fi.cohort_month)))::int AS month_offset,
		       count(DISTINCT a.customer_id)::int AS active_customers,
		       max(s.cohort_size)::int AS cohort_size
		FROM activity a
		JOIN firsts fi ON fi.customer_id = a.customer_id
		JOIN sizes s ON s.cohort_month = fi.cohort_month
		GROUP BY 1, 2
		ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("cohort query: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.CohortRow, 0)
	for rows.Next() {
		var r analytics.CohortRow
		if err := rows.Scan(&r.CohortMonth, &r.MonthOffset, &r.ActiveCustomers, &r.CohortSize); err != nil {
			return nil, fmt.Errorf("scan cohort row: %w", err)
		}
		r.Retention = money.Share(int64(r.ActiveCustomers), int64(r.CohortSize))
		out = append(out, r)
	}
	return out, rows.Err()
}

// basketItemsCTE builds the distinct (basket, product) pairs for the
// configured granularity. The key formats mirror the engine's basket
// keys exactly.
const basketItemsCTE = `
	WITH basket_items AS (
	    SELECT DISTINCT
	           CASE $1::text
	               WHEN 'invoice' THEN f.invoice_no
	               WHEN 'day' THEN c.customer_id || '|' || to_char(f.invoice_ts AT TIME ZONE 'UTC', 'YYYY-MM-DD')
	               ELSE c.customer_id || '|' || to_char(f.invoice_ts AT TIME ZONE 'UTC', 'YYYY-MM')
	           END AS basket_id,
	           p.stock_code
	    FROM fact_sales f
	    JOIN dim_customer c ON c.customer_key = f.customer_key
	    JOIN dim_product p ON p.product_key = f.product_key
	)`

// basketSQL mines frequently co-occurring product pairs.
func basketSQL(ctx context.Context, tx pgx.Tx, cfg analytics.Config) ([]analytics.BasketRow, error) {
	if cfg.MinSupportCount < 1 {
		return nil, fmt.Errorf("basket: min support count must be >= 1, got %d", cfg.MinSupportCount)
	}
	switch cfg.Basket {
	case analytics.GranularityInvoice, analytics.GranularityDay, analytics.GranularityMonth:
	default:
		return nil, fmt.Errorf("basket: unknown granularity %q", cfg.Basket)
	}
	g := string(cfg.Basket)

	var totalBaskets int64
	err := tx.QueryRow(ctx, basketItemsCTE+`
		SELECT count(DISTINCT basket_id) FROM basket_items`, g).Scan(&totalBaskets)
	if err != nil {
		return nil, fmt.Errorf("basket total query: %w", err)
	}

	itemCounts := make(map[string]int64)
	rows, err := tx.Query(ctx, basketItemsCTE+`
		SELECT stock_code, count(*) FROM basket_items GROUP BY stock_code`, g)
	if err != nil {
		return nil, fmt.Errorf("basket item query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var count int64
		if err := rows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("scan basket item: %w", err)
		}
		itemCounts[code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pairs, err := tx.Query(ctx, basketItemsCTE+`
		SELECT a.stock_code, b.stock_code, count(*) AS pair_count
		FROM basket_items a
		JOIN basket_items b ON a.basket_id = b.basket_id AND a.stock_code < b.stock_code
		GROUP BY a.stock_code, b.stock_code
		HAVING count(*) >= $2
		ORDER BY a.stock_code, b.stock_code`, g, cfg.MinSupportCount)
	if err != nil {
		return nil, fmt.Errorf("basket pair query: %w", err)
	}
	defer pairs.Close()

	out := make([]analytics.BasketRow, 0)
	for pairs.Next() {
		var r analytics.BasketRow
		if err := pairs.Scan(&r.ProductA, &r.ProductB, &r.PairCount); err != nil {
			return nil, fmt.Errorf("scan basket pair: %w", err)
		}
		r.Support = money.Share(r.PairCount, totalBaskets)
		r.ConfidenceAB = money.Share(r.PairCount, itemCounts[r.ProductA])
		r.ConfidenceBA = money.Share(r.PairCount, itemCounts[r.ProductB])
		out = append(out, r)
	}
	return out, pairs.Err()
}

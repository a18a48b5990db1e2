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
)

// Publish replaces the published analytics tables with the results of
// one run. Each module is replaced in its own transaction; a module
// that failed (or did not run) keeps its previous publication.
func (s *Store) Publish(ctx context.Context, res *analytics.Results) error {
	computedAt := time.Now().UTC()

	for _, module := range analytics.Modules {
		if res.Failed(module) {
			logging.Warn().Str("module", module).Msg("Skipping publication of failed module")
			continue
		}
		if err := s.publishModule(ctx, module, res, computedAt); err != nil {
			return fmt.Errorf("publish %s: %w", module, err)
		}
	}
	return nil
}

func (s *Store) publishModule(ctx context.Context, module string, res *analytics.Results, at time.Time) error {
	var table string
	var cols []string
	var src pgx.CopyFromSource

	switch module {
	case analytics.ModuleRFM:
		table = "analytics_rfm"
		cols = []string{"customer_id", "recency_days", "frequency", "monetary",
			"r_score", "f_score", "m_score", "segment", "computed_at"}
		src = pgx.CopyFromSlice(len(res.RFM), func(i int) ([]any, error) {
			r := res.RFM[i]
			return []any{r.CustomerID, r.RecencyDays, r.Frequency, r.Monetary,
				r.RScore, r.FScore, r.MScore, r.Segment, at}, nil
		})
	case analytics.ModuleABC:
		table = "analytics_abc"
		cols = []string{"stock_code", "description", "revenue", "revenue_rank",
			"revenue_share", "cumulative_share", "class", "computed_at"}
		src = pgx.CopyFromSlice(len(res.ABC), func(i int) ([]any, error) {
			r := res.ABC[i]
			return []any{r.ProductID, r.Description, r.Revenue, r.Rank,
				r.RevenueShare, r.CumulativeShare, r.Class, at}, nil
		})
	case analytics.ModuleCLV:
		table = "analytics_clv"
		cols = []string{"customer_id", "purchase_count", "avg_purchase_value",
			"lifespan_years", "purchase_frequency", "clv", "clv_discounted", "computed_at"}
		src = pgx.CopyFromSlice(len(res.CLV), func(i int) ([]any, error) {
			r := res.CLV[i]
			return []any{r.CustomerID, r.PurchaseCount, r.AvgPurchaseValue,
				r.LifespanYears, r.PurchaseFrequency, r.CLV, r.CLVDiscounted, at}, nil
		})
	case analytics.ModuleCohort:
		table = "analytics_cohort"
		cols = []string{"cohort_month", "month_offset", "active_customers",
			"cohort_size", "retention", "computed_at"}
		src = pgx.CopyFromSlice(len(res.Cohort), func(i int) ([]any, error) {
			r := res.Cohort[i]
			return []any{r.CohortMonth, r.MonthOffset, r.ActiveCustomers,
				r.CohortSize, r.Retention, at}, nil
		})
	case analytics.ModuleBasket:
		table = "analytics_basket"
		cols = []string{"product_a", "product_b", "pair_count", "support",
			"confidence_ab", "confidence_ba", "computed_at"}
		src = pgx.CopyFromSlice(len(res.Basket), func(i int) ([]any, error) {
			r := res.Basket[i]
			return []any{r.ProductA, r.ProductB, r.PairCount, r.Support,
				r.ConfidenceAB, r.ConfidenceBA, at}, nil
		})
	default:
		return fmt.Errorf("unknown module %q", module)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return err
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, src)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logging.Debug().Str("module", module).Int64("rows", n).Msg("Published analytics module")
	return nil
}

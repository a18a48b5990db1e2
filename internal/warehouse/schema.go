//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse is the PostgreSQL backing store: the star schema,
// the load transaction surface, the analytics snapshot and the SQL
// twins of the in-engine analytics modules.
package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema SQL for the retail star schema and its ETL bookkeeping.
// Dimensions are SCD Type 2: a natural key maps to a history of
// versions with half-open validity intervals and a single current row.
const createSchemaSQL = `
-- Customer Dimension (SCD2)
CREATE TABLE IF NOT EXISTS dim_customer (
    customer_key   BIGSERIAL PRIMARY KEY,
    customer_id    TEXT NOT NULL,
    country        TEXT NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to   TIMESTAMPTZ,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_customer_current
    ON dim_customer (customer_id) WHERE is_current;

-- Product Dimension (SCD2). Unit price lives on the fact line, not
-- here: it varies per transaction and would version the dimension on
-- every load.
CREATE TABLE IF NOT EXISTS dim_product (
    product_key    BIGSERIAL PRIMARY KEY,
    stock_code     TEXT NOT NULL,
    description    TEXT NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to   TIMESTAMPTZ,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_product_current
    ON dim_product (stock_code) WHERE is_current;

-- Store Dimension (SCD2). The source carries no point-of-sale id, so
-- the sales region is the store grain.
CREATE TABLE IF NOT EXISTS dim_store (
    store_key      BIGSERIAL PRIMARY KEY,
    store_id       TEXT NOT NULL,
    region         TEXT NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to   TIMESTAMPTZ,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_store_current
    ON dim_store (store_id) WHERE is_current;

-- Time Dimension. Attributes are pure functions of the calendar date;
-- the SCD2 columns exist for uniformity but versions never close.
CREATE TABLE IF NOT EXISTS dim_time (
    time_key       BIGSERIAL PRIMARY KEY,
    calendar_date  DATE NOT NULL,
    day            INT NOT NULL,
    month          INT NOT NULL,
    year           INT NOT NULL,
    quarter        INT NOT NULL,
    day_name       TEXT NOT NULL,
    is_weekend     BOOLEAN NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to   TIMESTAMPTZ,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_time_current
    ON dim_time (calendar_date) WHERE is_current;

-- Sales Fact. The natural identity of a transaction line is
-- (invoice_no, stock_code); the unique constraint makes re-loads
-- insert nothing instead of duplicating.
CREATE TABLE IF NOT EXISTS fact_sales (
    sale_key     BIGSERIAL PRIMARY KEY,
    customer_key BIGINT NOT NULL REFERENCES dim_customer (customer_key),
    product_key  BIGINT NOT NULL REFERENCES dim_product (product_key),
    store_key    BIGINT NOT NULL REFERENCES dim_store (store_key),
    time_key     BIGINT NOT NULL REFERENCES dim_time (time_key),
    invoice_no   TEXT NOT NULL,
    stock_code   TEXT NOT NULL,
    quantity     INT NOT NULL,
    unit_price   NUMERIC(12,2) NOT NULL,
    line_amount  NUMERIC(12,2) NOT NULL,
    invoice_ts   TIMESTAMPTZ NOT NULL,
    UNIQUE (invoice_no, stock_code)
);

CREATE INDEX IF NOT EXISTS idx_fact_sales_customer ON fact_sales (customer_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_product ON fact_sales (product_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_ts ON fact_sales (invoice_ts);

-- Per-source watermark. Advances only inside a committed load
-- transaction; the counters accumulate across runs.
CREATE TABLE IF NOT EXISTS etl_watermark (
    source            TEXT PRIMARY KEY,
    watermark_ts      TIMESTAMPTZ NOT NULL,
    watermark_invoice TEXT NOT NULL DEFAULT '',
    rows_processed    BIGINT NOT NULL DEFAULT 0,
    rows_rejected     BIGINT NOT NULL DEFAULT 0,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Quality-gate rejections, kept for reporting. The watermark advances
-- over these rows, so this table is the only trace they leave.
CREATE TABLE IF NOT EXISTS etl_rejected_records (
    id          BIGSERIAL PRIMARY KEY,
    batch_id    UUID NOT NULL,
    source      TEXT NOT NULL,
    source_row  BIGINT NOT NULL,
    invoice_no  TEXT NOT NULL,
    stock_code  TEXT NOT NULL,
    reason      TEXT NOT NULL,
    rejected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_etl_rejected_batch ON etl_rejected_records (batch_id);

-- Pipeline run history.
CREATE TABLE IF NOT EXISTS etl_batch_log (
    batch_id      UUID PRIMARY KEY,
    pipeline      TEXT NOT NULL,
    source        TEXT NOT NULL,
    status        TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ,
    rows_read     BIGINT NOT NULL DEFAULT 0,
    rows_inserted BIGINT NOT NULL DEFAULT 0,
    rows_skipped  BIGINT NOT NULL DEFAULT 0,
    rows_rejected BIGINT NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT ''
);

-- Published analytics models. Each table is replaced atomically per
-- module; a failed module leaves its previous publication in place.
CREATE TABLE IF NOT EXISTS analytics_rfm (
    customer_id  TEXT PRIMARY KEY,
    recency_days INT NOT NULL,
    frequency    BIGINT NOT NULL,
    monetary     NUMERIC(12,2) NOT NULL,
    r_score      INT NOT NULL,
    f_score      INT NOT NULL,
    m_score      INT NOT NULL,
    segment      TEXT NOT NULL,
    computed_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analytics_abc (
    stock_code       TEXT PRIMARY KEY,
    description      TEXT NOT NULL,
    revenue          NUMERIC(14,2) NOT NULL,
    revenue_rank     INT NOT NULL,
    revenue_share    NUMERIC(9,6) NOT NULL,
    cumulative_share NUMERIC(9,6) NOT NULL,
    class            TEXT NOT NULL,
    computed_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analytics_clv (
    customer_id        TEXT PRIMARY KEY,
    purchase_count     BIGINT NOT NULL,
    avg_purchase_value NUMERIC(14,2) NOT NULL,
    lifespan_years     DOUBLE PRECISION NOT NULL,
    purchase_frequency DOUBLE PRECISION NOT NULL,
    clv                NUMERIC(14,2) NOT NULL,
    clv_discounted     NUMERIC(14,2) NOT NULL,
    computed_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analytics_cohort (
    cohort_month     TEXT NOT NULL,
    month_offset     INT NOT NULL,
    active_customers INT NOT NULL,
    cohort_size      INT NOT NULL,
    retention        NUMERIC(9,6) NOT NULL,
    computed_at      TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (cohort_month, month_offset)
);

CREATE TABLE IF NOT EXISTS analytics_basket (
    product_a     TEXT NOT NULL,
    product_b     TEXT NOT NULL,
    pair_count    BIGINT NOT NULL,
    support       NUMERIC(9,6) NOT NULL,
    confidence_ab NUMERIC(9,6) NOT NULL,
    confidence_ba NUMERIC(9,6) NOT NULL,
    computed_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (product_a, product_b)
);
`

// Drop schema SQL
const dropSchemaSQL = `
DROP TABLE IF EXISTS analytics_basket CASCADE;
DROP TABLE IF EXISTS analytics_cohort CASCADE;
DROP TABLE IF EXISTS analytics_clv CASCADE;
DROP TABLE IF EXISTS analytics_abc CASCADE;
DROP TABLE IF EXISTS analytics_rfm CASCADE;
DROP TABLE IF EXISTS etl_batch_log CASCADE;
DROP TABLE IF EXISTS etl_rejected_records CASCADE;
DROP TABLE IF EXISTS etl_watermark CASCADE;
DROP TABLE IF EXISTS fact_sales CASCADE;
DROP TABLE IF EXISTS dim_time CASCADE;
DROP TABLE IF EXISTS dim_store CASCADE;
DROP TABLE IF EXISTS dim_product CASCADE;
DROP TABLE IF EXISTS dim_customer CASCADE;
`

// CreateSchema creates the warehouse schema.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops the warehouse schema.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}

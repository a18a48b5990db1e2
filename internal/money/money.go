//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package money provides exact decimal arithmetic for monetary amounts.
//
// Amounts are carried through the pipeline and the analytics engine as
// integer cents so that in-engine aggregation matches NUMERIC(12,2)
// aggregation in the warehouse exactly. Decimal parsing and share
// calculations round half-up, matching PostgreSQL's ROUND() on numeric.
package money

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

var decCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(25)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// ParseCents parses a decimal string (e.g. "2.55") into integer cents.
// Values with more than two fractional digits are rounded half-up.
func ParseCents(s string) (int64, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	var scaled, rounded apd.Decimal
	if _, err := decCtx.Mul(&scaled, d, apd.New(1, 2)); err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if _, err := decCtx.Quantize(&rounded, &scaled, 0); err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	v, err := rounded.Int64()
	if err != nil {
		return 0, fmt.Errorf("decimal %q out of range: %w", s, err)
	}
	return v, nil
}

// FormatCents renders integer cents as a plain decimal string ("255" -> "2.55").
func FormatCents(c int64) string {
	return apd.New(c, -2).Text('f')
}

// Dollars converts integer cents to a float64 dollar amount.
func Dollars(c int64) float64 {
	return float64(c) / 100
}

// Share computes num/den rounded half-up to six fractional digits,
// the scale of the published share columns.
func Share(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	var q, r apd.Decimal
	// Quo and Quantize cannot fail for finite int64 operands at this precision.
	decCtx.Quo(&q, apd.New(num, 0), apd.New(den, 0))
	decCtx.Quantize(&r, &q, -6)
	f, _ := strconv.ParseFloat(r.Text('f'), 64)
	return f
}

// ShareLE reports whether num/den <= threshold, compared exactly: the
// threshold is taken at its decimal representation and the comparison
// is num <= threshold*den in exact decimal arithmetic. This keeps
// classification boundaries identical to NUMERIC comparison in SQL.
func ShareLE(num, den int64, threshold float64) bool {
	t, _, err := apd.NewFromString(strconv.FormatFloat(threshold, 'f', -1, 64))
	if err != nil {
		return false
	}
	var bound apd.Decimal
	decCtx.Mul(&bound, t, apd.New(den, 0))
	return apd.New(num, 0).Cmp(&bound) <= 0
}

// Round2 rounds a float64 dollar amount half-up to two fractional digits.
// Used where a derived metric (e.g. CLV) leaves exact integer arithmetic.
func Round2(v float64) float64 {
	var d, r apd.Decimal
	if _, err := d.SetFloat64(v); err != nil {
		return v
	}
	if _, err := decCtx.Quantize(&r, &d, -2); err != nil {
		return v
	}
	f, _ := strconv.ParseFloat(r.Text('f'), 64)
	return f
}

//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "2.55", want: 255},
		{in: "0", want: 0},
		{in: "0.5", want: 50},
		{in: "1000", want: 100000},
		{in: "-3.75", want: -375},
		{in: "1.005", want: 101},  // half-up, not banker's
		{in: "1.004", want: 100},
		{in: "2,55", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCents(tt.in)
		if tt.wantErr {
			require.Error(t, err, "ParseCents(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseCents(%q)", tt.in)
		require.Equal(t, tt.want, got, "ParseCents(%q)", tt.in)
	}
}

func TestFormatCents(t *testing.T) {
	require.Equal(t, "2.55", FormatCents(255))
	require.Equal(t, "0.00", FormatCents(0))
	require.Equal(t, "-3.75", FormatCents(-375))
	require.Equal(t, "100.00", FormatCents(10000))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, c := range []int64{0, 1, 99, 100, 12345, -250} {
		got, err := ParseCents(FormatCents(c))
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestShare(t *testing.T) {
	require.Equal(t, 0.15, Share(15, 100))
	require.Equal(t, 0.333333, Share(1, 3))
	require.Equal(t, 0.666667, Share(2, 3)) // half-up at the sixth digit
	require.Equal(t, 1.0, Share(7, 7))
	require.Equal(t, 0.0, Share(5, 0)) // empty denominator yields zero
}

func TestShareLE(t *testing.T) {
	// Exact boundary: 70/100 == 0.70, so it is still <=.
	require.True(t, ShareLE(70, 100, 0.70))
	require.False(t, ShareLE(71, 100, 0.70))

	// A boundary float64 cannot represent exactly: 7/10 compared as
	// decimal 0.7, not as the nearest binary fraction.
	require.True(t, ShareLE(7000, 10000, 0.7))
	require.False(t, ShareLE(7001, 10000, 0.7))

	require.True(t, ShareLE(0, 100, 0.0))
	require.False(t, ShareLE(1, 100, 0.0))
}

func TestDollars(t *testing.T) {
	require.Equal(t, 6.0, Dollars(600))
	require.Equal(t, 0.99, Dollars(99))
}

func TestRound2(t *testing.T) {
	require.Equal(t, 1.25, Round2(1.249999999))
	require.Equal(t, 1.01, Round2(1.005000001))
	require.Equal(t, 100.0, Round2(100.0))
	require.Equal(t, -2.35, Round2(-2.345000001))
}

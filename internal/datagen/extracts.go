//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-retaildw/internal/extract"
)

// ExtractConfig controls synthetic extract generation.
type ExtractConfig struct {
	// Rows is the number of transaction lines to generate.
	Rows int

	// Customers and Products size the synthetic populations.
	Customers int
	Products  int

	// Seed makes generation reproducible; 0 seeds from entropy.
	Seed uint64

	// Start is the first invoice date; invoices spread over Days.
	Start time.Time
	Days  int
}

type customer struct {
	id      string
	country string
}

type product struct {
	code       string
	desc       string
	priceCents int64
}

// Countries weighted towards a home market, like the reference extract.
var countries = []string{
	"United Kingdom", "Germany", "France", "Netherlands", "Ireland",
	"Spain", "Belgium", "Switzerland", "Portugal", "Australia",
}
var countryWeights = []int{60, 8, 8, 5, 5, 4, 3, 3, 2, 2}

// Generator produces synthetic retail extracts with stable customer
// and product populations, so repeated invoices exercise SCD2 reuse
// and the analytics modules see realistic repeat-purchase behavior.
type Generator struct {
	cfg       ExtractConfig
	faker     *Faker
	customers []customer
	products  []product
}

// NewGenerator builds the synthetic populations.
func NewGenerator(cfg ExtractConfig) *Generator {
	var f *Faker
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	} else {
		f = NewFaker()
	}

	g := &Generator{cfg: cfg, faker: f}
	for i := 0; i < cfg.Customers; i++ {
		g.customers = append(g.customers, customer{
			id:      fmt.Sprintf("1%04d", i),
			country: ChooseWeighted(f, countries, countryWeights),
		})
	}
	for i := 0; i < cfg.Products; i++ {
		code := fmt.Sprintf("2%04d", i)
		if f.Int(1, 10) == 1 {
			code += string(rune('A' + f.Int(0, 5)))
		}
		g.products = append(g.products, product{
			code:       code,
			desc:       strings.ToUpper(f.ProductName()),
			priceCents: int64(math.Round(f.Price(0.5, 40) * 100)),
		})
	}
	return g
}

// Generate produces rows transaction lines grouped into invoices,
// ordered by invoice timestamp. A small fraction of lines is dirty
// (returns with negative quantity, missing customer ids) so the
// quality gate has something to reject.
func (g *Generator) Generate() []extract.Record {
	end := g.cfg.Start.AddDate(0, 0, g.cfg.Days)

	var records []extract.Record
	invoice := 536365
	for len(records) < g.cfg.Rows {
		cust := Choose(g.faker, g.customers)
		ts := g.faker.DateRange(g.cfg.Start, end).UTC().Truncate(time.Minute)
		lines := g.faker.Int(1, 8)

		isReturn := g.faker.Int(1, 50) == 1
		invoiceNo := fmt.Sprintf("%d", invoice)
		if isReturn {
			invoiceNo = "C" + invoiceNo
		}
		invoice++

		// One line per distinct product; a repeat pick would collide
		// with the fact table's invoice line uniqueness.
		seen := make(map[string]bool, lines)
		for l := 0; l < lines && len(records) < g.cfg.Rows; l++ {
			p := Choose(g.faker, g.products)
			if seen[p.code] {
				continue
			}
			seen[p.code] = true
			qty := int64(g.faker.Int(1, 24))
			if isReturn {
				qty = -qty
			}

			r := extract.Record{
				InvoiceNo:      invoiceNo,
				StockCode:      p.code,
				Description:    p.desc,
				Quantity:       qty,
				InvoiceDate:    ts,
				UnitPriceCents: p.priceCents,
				CustomerID:     cust.id,
				Country:        cust.country,
			}
			// Guest checkouts have no customer id.
			if g.faker.Int(1, 100) == 1 {
				r.CustomerID = ""
			}
			records = append(records, r)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].InvoiceDate.Equal(records[j].InvoiceDate) {
			return records[i].InvoiceDate.Before(records[j].InvoiceDate)
		}
		return records[i].InvoiceNo < records[j].InvoiceNo
	})
	for i := range records {
		records[i].Position = int64(i + 1)
	}
	return records
}

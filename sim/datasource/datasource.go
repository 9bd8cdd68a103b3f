// Package datasource opens historical option quote stores as sim.DataSource
// values. Every source groups quotes sharing a quote date into one snapshot and
// yields snapshots in chronological order.
package datasource

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optionsim/optionsim/sim"
)

// ErrUnknownScheme is returned by Open for locators it cannot route.
var ErrUnknownScheme = errors.New("unknown data source scheme")

// Options narrows what a source yields. Zero values mean no restriction.
type Options struct {
	// Symbols lists the subscribed underlyings.
	Symbols []string
	Start   time.Time
	End     time.Time
}

func (o Options) accept(r quoteRow) bool {
	if len(o.Symbols) > 0 && !contains(o.Symbols, r.Underlying) {
		return false
	}
	if !o.Start.IsZero() && r.QuoteDate.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && r.QuoteDate.After(o.End) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// quoteRow is one row of the quotes table or CSV file.
type quoteRow struct {
	Symbol     string          `db:"symbol"`
	Underlying string          `db:"underlying"`
	QuoteDate  time.Time       `db:"quote_date"`
	Bid        decimal.Decimal `db:"bid"`
	Ask        decimal.Decimal `db:"ask"`
}

func (r quoteRow) quote() sim.Quote {
	return sim.Quote{
		Symbol:     r.Symbol,
		Underlying: r.Underlying,
		Time:       r.QuoteDate,
		Bid:        r.Bid,
		Ask:        r.Ask,
	}
}

// Open routes a storage locator to a source:
//
//	sqlite://<path>              SQLite file
//	postgres://... postgresql:// PostgreSQL DSN
//	csv://<path> or <path>.csv   CSV file
//
// A bare path ending in .db or .sqlite is opened as SQLite.
func Open(locator string, opts Options) (sim.DataSource, error) {
	scheme, rest, found := strings.Cut(locator, "://")
	if !found {
		switch {
		case strings.HasSuffix(locator, ".csv"):
			return source(OpenCSV(locator, opts))
		case strings.HasSuffix(locator, ".db"), strings.HasSuffix(locator, ".sqlite"):
			return source(OpenSQLite(locator, opts))
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, locator)
	}
	switch scheme {
	case "sqlite", "sqlite3":
		return source(OpenSQLite(rest, opts))
	case "postgres", "postgresql":
		return source(OpenPostgres(locator, opts))
	case "csv":
		return source(OpenCSV(rest, opts))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// source drops the typed nil a failed opener returns so callers never see a
// non-nil interface holding a nil pointer.
func source[T sim.DataSource](src T, err error) (sim.DataSource, error) {
	if err != nil {
		return nil, err
	}
	return src, nil
}

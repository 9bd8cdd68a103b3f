package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var csvColumns = []string{"symbol", "underlying", "quote_date", "bid", "ask"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// OpenCSV loads a quotes CSV file with a header naming at least the columns
// symbol, underlying, quote_date, bid and ask (in any order).
func OpenCSV(path string, opts Options) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	return NewMemory(groupRows(rows)), nil
}

func readCSV(r io.Reader, opts Options) ([]quoteRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows []quoteRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if opts.accept(row) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseRecord(rec []string, col map[string]int) (quoteRow, error) {
	date, err := parseDate(rec[col["quote_date"]])
	if err != nil {
		return quoteRow{}, err
	}
	bid, err := decimal.NewFromString(rec[col["bid"]])
	if err != nil {
		return quoteRow{}, fmt.Errorf("bid: %w", err)
	}
	ask, err := decimal.NewFromString(rec[col["ask"]])
	if err != nil {
		return quoteRow{}, fmt.Errorf("ask: %w", err)
	}
	return quoteRow{
		Symbol:     rec[col["symbol"]],
		Underlying: rec[col["underlying"]],
		QuoteDate:  date,
		Bid:        bid,
		Ask:        ask,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("quote_date %q: unrecognized format", s)
}

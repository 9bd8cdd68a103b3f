package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/optionsim/optionsim/sim"
)

// SQL streams snapshots from a quotes table:
//
//	quotes(symbol, underlying, quote_date, bid, ask)
//
// Rows are read through a single cursor ordered by quote_date, symbol and
// folded into one snapshot per quote date.
type SQL struct {
	db      *sqlx.DB
	ownsDB  bool
	query   string
	args    []any
	rows    *sqlx.Rows
	pending *quoteRow
	done    bool
}

// OpenSQLite opens the SQLite file at path.
func OpenSQLite(path string, opts Options) (*SQL, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return newSQL(db, true, opts)
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(dsn string, opts Options) (*SQL, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQL(db, true, opts)
}

// NewSQL reads quotes through an existing connection. The caller keeps
// ownership of db; Close leaves it open.
func NewSQL(db *sqlx.DB, opts Options) (*SQL, error) {
	return newSQL(db, false, opts)
}

func newSQL(db *sqlx.DB, owns bool, opts Options) (*SQL, error) {
	query, args, err := buildQuery(db, opts)
	if err != nil {
		if owns {
			_ = db.Close()
		}
		return nil, err
	}
	return &SQL{db: db, ownsDB: owns, query: query, args: args}, nil
}

func buildQuery(db *sqlx.DB, opts Options) (string, []any, error) {
	var where []string
	var args []any
	if len(opts.Symbols) > 0 {
		where = append(where, "underlying IN (?)")
		args = append(args, opts.Symbols)
	}
	if !opts.Start.IsZero() {
		where = append(where, "quote_date >= ?")
		args = append(args, opts.Start)
	}
	if !opts.End.IsZero() {
		where = append(where, "quote_date <= ?")
		args = append(args, opts.End)
	}

	query := "SELECT symbol, underlying, quote_date, bid, ask FROM quotes"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY quote_date, symbol"

	if len(opts.Symbols) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return "", nil, fmt.Errorf("expand symbols: %w", err)
		}
	}
	return db.Rebind(query), args, nil
}

// Next implements sim.DataSource. The query runs on the first call.
func (s *SQL) Next(ctx context.Context) (sim.Snapshot, bool, error) {
	if s.done {
		return sim.Snapshot{}, false, nil
	}
	if s.rows == nil {
		rows, err := s.db.QueryxContext(ctx, s.query, s.args...)
		if err != nil {
			return sim.Snapshot{}, false, fmt.Errorf("query quotes: %w", err)
		}
		s.rows = rows
	}

	var snap sim.Snapshot
	if s.pending != nil {
		snap.Time = s.pending.QuoteDate
		snap.Quotes = append(snap.Quotes, s.pending.quote())
		s.pending = nil
	}
	for s.rows.Next() {
		var r quoteRow
		if err := s.rows.StructScan(&r); err != nil {
			return sim.Snapshot{}, false, fmt.Errorf("scan quote: %w", err)
		}
		if len(snap.Quotes) == 0 {
			snap.Time = r.QuoteDate
		} else if !r.QuoteDate.Equal(snap.Time) {
			s.pending = &r
			return snap, true, nil
		}
		snap.Quotes = append(snap.Quotes, r.quote())
	}
	if err := s.rows.Err(); err != nil {
		return sim.Snapshot{}, false, fmt.Errorf("iterate quotes: %w", err)
	}
	s.done = true
	if err := s.rows.Close(); err != nil {
		return sim.Snapshot{}, false, fmt.Errorf("close cursor: %w", err)
	}
	if len(snap.Quotes) > 0 {
		return snap, true, nil
	}
	return sim.Snapshot{}, false, nil
}

// Close releases the cursor and, for sources opened from a locator, the
// connection.
func (s *SQL) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

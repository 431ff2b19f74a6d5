// Package sqlite implements the positionbook stores on a single SQLite file.
// Prices and quantities are stored as decimal text so values round-trip
// exactly as entered.
package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB is an open positionbook SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database handle.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Positions returns the position store.
func (d *DB) Positions() *PositionStore { return &PositionStore{db: d.db} }

// Trades returns the trade store.
func (d *DB) Trades() *TradeStore { return &TradeStore{db: d.db} }

// Journals returns the journal store.
func (d *DB) Journals() *JournalStore { return &JournalStore{db: d.db} }

// Audit returns the audit store.
func (d *DB) Audit() *AuditStore { return &AuditStore{db: d.db} }

func decText(f float64) string {
	return decimal.NewFromFloat(f).String()
}

func parseDec(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func nullDec(f *float64) sql.NullString {
	if f == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: decText(*f), Valid: true}
}

func parseNullDec(ns sql.NullString) (*float64, error) {
	if !ns.Valid {
		return nil, nil
	}
	f, err := parseDec(ns.String)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func timeText(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// mapError translates driver errors into domain sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, se)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, se)
		}
	}
	return err
}

// listClause appends time filters, ordering and pagination on col.
func listClause(query string, args []any, col, order string, opts domain.ListOpts) (string, []any) {
	if opts.Since != nil {
		query += " AND " + col + " >= ?"
		args = append(args, timeText(*opts.Since))
	}
	if opts.Until != nil {
		query += " AND " + col + " <= ?"
		args = append(args, timeText(*opts.Until))
	}
	query += " ORDER BY " + col + " " + order
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, opts.Offset)
	}
	return query, args
}

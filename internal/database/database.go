// Package database wraps the SQLite store shared by the API: providers,
// receivers, food listings, and the claims made against them. All SQL for
// those entities lives here, including the atomic claim-transition path that
// keeps a listing's availability in line with its claims.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write loses a race or violates a
	// state precondition (claiming an unavailable listing, concurrent
	// transitions against the same claim).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned when a claim transition is not in
	// the transition table.
	ErrInvalidTransition = errors.New("invalid transition")
)

// DB wraps the SQLite connections. Writes go through conn, which is capped at
// a single open connection so SQLite never interleaves multi-statement units.
// Ad-hoc analytics reads go through ro, a separate handle opened read-only.
type DB struct {
	conn *sql.DB
	ro   *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS providers (
	provider_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	contact     TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS receivers (
	receiver_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	city        TEXT NOT NULL DEFAULT '',
	contact     TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS food_listings (
	food_id       TEXT PRIMARY KEY,
	food_name     TEXT NOT NULL,
	quantity      INTEGER NOT NULL CHECK (quantity >= 1),
	expiry_date   TEXT NOT NULL,
	provider_id   TEXT NOT NULL REFERENCES providers(provider_id),
	provider_type TEXT NOT NULL,
	location      TEXT NOT NULL DEFAULT '',
	food_type     TEXT NOT NULL DEFAULT '',
	meal_type     TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'Available',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS claims (
	claim_id    TEXT PRIMARY KEY,
	food_id     TEXT NOT NULL REFERENCES food_listings(food_id),
	receiver_id TEXT NOT NULL REFERENCES receivers(receiver_id),
	status      TEXT NOT NULL DEFAULT 'Pending',
	notes       TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON food_listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_expiry ON food_listings(expiry_date);
CREATE INDEX IF NOT EXISTS idx_claims_status   ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_food     ON claims(food_id);
CREATE INDEX IF NOT EXISTS idx_claims_time     ON claims(timestamp);
`

// Open creates or opens the SQLite database at path and applies the schema.
// A second, read-only connection backs the analytics query paths so that
// user-supplied query text can never write, regardless of what the keyword
// filter misses.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	ro, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open read-only database: %w", err)
	}
	if err := ro.Ping(); err != nil {
		conn.Close()
		ro.Close()
		return nil, fmt.Errorf("ping read-only database: %w", err)
	}

	return &DB{conn: conn, ro: ro}, nil
}

// Close shuts down both database connections.
func (db *DB) Close() error {
	roErr := db.ro.Close()
	if err := db.conn.Close(); err != nil {
		return err
	}
	return roErr
}

// QueryRead runs an arbitrary statement on the read-only connection. The
// analytics sandbox and the canned reports share this path.
func (db *DB) QueryRead(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.ro.QueryContext(ctx, query, args...)
}

// sqliteTime renders a timestamp the way SQLite's date and time functions
// expect, so date(timestamp) and strftime comparisons work on stored values.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

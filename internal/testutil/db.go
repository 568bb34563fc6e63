// Package testutil provides helpers shared by the package test suites.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/event-ticketing/internal/database"
)

// NewTestDB opens a fresh SQLite database in the test's temp dir and applies
// the schema. A single connection serializes statements the same way row
// locks serialize them on MySQL, so concurrency tests stay deterministic
// about correctness without depending on SQLite's lock timeouts.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookings.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// InsertTicketType seeds a ticket type with the given limit and price.
func InsertTicketType(t *testing.T, db *sql.DB, eventID, name string, limit int, priceCents int64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO ticket_types (event_id, name, ticket_limit, booked, price_cents, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		eventID, name, limit, priceCents, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert ticket type: %v", err)
	}
}

// Counters reads the stored limit and booked values of a ticket type.
func Counters(t *testing.T, db *sql.DB, eventID, name string) (limit, booked int) {
	t.Helper()
	err := db.QueryRow(
		`SELECT ticket_limit, booked FROM ticket_types WHERE event_id = ? AND name = ?`, eventID, name,
	).Scan(&limit, &booked)
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	return limit, booked
}

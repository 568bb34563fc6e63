package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is written in the subset of SQL shared by MySQL 8 and SQLite so
// the same statements back production and the test suite. Available
// inventory is never stored; the CHECK on ticket_types keeps booked within
// [0, ticket_limit] even if a statement predicate were wrong.
var schema = []struct {
	name string
	ddl  string
}{
	{"ticket_types", `
CREATE TABLE IF NOT EXISTS ticket_types (
    event_id     VARCHAR(64)  NOT NULL,
    name         VARCHAR(100) NOT NULL,
    ticket_limit INT          NOT NULL,
    booked       INT          NOT NULL DEFAULT 0,
    price_cents  BIGINT       NOT NULL DEFAULT 0,
    updated_at   DATETIME     NOT NULL,
    PRIMARY KEY (event_id, name),
    CONSTRAINT chk_ticket_types_limit CHECK (ticket_limit >= 0),
    CONSTRAINT chk_ticket_types_booked CHECK (booked >= 0 AND booked <= ticket_limit)
)`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
    id                 CHAR(36)     NOT NULL PRIMARY KEY,
    code               VARCHAR(32)  NOT NULL,
    event_id           VARCHAR(64)  NOT NULL,
    ticket_type        VARCHAR(100) NOT NULL,
    quantity           INT          NOT NULL,
    unit_price_cents   BIGINT       NOT NULL,
    total_amount_cents BIGINT       NOT NULL,
    owner_id           VARCHAR(64)  NOT NULL,
    owner_email        VARCHAR(255) NOT NULL DEFAULT '',
    state              VARCHAR(16)  NOT NULL,
    checked_in_at      DATETIME     NULL,
    checked_in_by      VARCHAR(64)  NULL,
    created_at         DATETIME     NOT NULL,
    updated_at         DATETIME     NOT NULL,
    CONSTRAINT uq_bookings_code UNIQUE (code),
    CONSTRAINT chk_bookings_quantity CHECK (quantity >= 1),
    CONSTRAINT chk_bookings_state CHECK (state IN ('BOOKED', 'CANCELED', 'CHECKED_IN'))
)`},
}

// EnsureSchema creates the ticket_types and bookings tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}
	return nil
}

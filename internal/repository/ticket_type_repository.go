package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// TicketTypeRepo stores per-event ticket type counters. The ticket_types
// table holds ticket_limit and booked; available is never stored. Reserve
// and Release are single conditional UPDATE statements so concurrent
// callers are serialized by the row lock of the database, never by a lock
// held in this process.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a new TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketTypeColumns = `event_id, name, ticket_limit, booked, price_cents, updated_at`

// Reserve atomically moves qty units from available to booked. It returns
// model.ErrInsufficientInventory when fewer than qty units remain and
// model.ErrTicketTypeNotFound when the ticket type does not exist.
func (r *TicketTypeRepo) Reserve(ctx context.Context, eventID, name string, qty int, now time.Time) error {
	const q = `UPDATE ticket_types SET booked = booked + ?, updated_at = ?
WHERE event_id = ? AND name = ? AND booked + ? <= ticket_limit`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, qty, now, eventID, name, qty)
	if err != nil {
		return fmt.Errorf("reserve %s/%s: %w", eventID, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	ok, err := r.exists(ctx, eventID, name)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrTicketTypeNotFound
	}
	return model.ErrInsufficientInventory
}

// Release atomically returns qty units from booked to available. A release
// that would make booked negative is refused with model.ErrIntegrityViolation
// and nothing is written.
func (r *TicketTypeRepo) Release(ctx context.Context, eventID, name string, qty int, now time.Time) error {
	const q = `UPDATE ticket_types SET booked = booked - ?, updated_at = ?
WHERE event_id = ? AND name = ? AND booked >= ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, qty, now, eventID, name, qty)
	if err != nil {
		return fmt.Errorf("release %s/%s: %w", eventID, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	ok, err := r.exists(ctx, eventID, name)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrTicketTypeNotFound
	}
	return model.ErrIntegrityViolation
}

// Get returns a single ticket type or model.ErrTicketTypeNotFound.
func (r *TicketTypeRepo) Get(ctx context.Context, eventID, name string) (model.TicketType, error) {
	const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = ? AND name = ?`
	var t model.TicketType
	err := conn(ctx, r.db).QueryRowContext(ctx, q, eventID, name).Scan(
		&t.EventID, &t.Name, &t.Limit, &t.Booked, &t.PriceCents, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TicketType{}, model.ErrTicketTypeNotFound
	}
	if err != nil {
		return model.TicketType{}, err
	}
	return t, nil
}

// ListByEvent returns all ticket types of an event ordered by name. An
// unknown event yields an empty slice.
func (r *TicketTypeRepo) ListByEvent(ctx context.Context, eventID string) ([]model.TicketType, error) {
	const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = ? ORDER BY name`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TicketType, 0)
	for rows.Next() {
		var t model.TicketType
		if err := rows.Scan(&t.EventID, &t.Name, &t.Limit, &t.Booked, &t.PriceCents, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Insert creates a new ticket type with booked = 0. It returns
// model.ErrTicketTypeExists when the (event_id, name) pair is already taken.
func (r *TicketTypeRepo) Insert(ctx context.Context, t model.TicketType) error {
	const q = `INSERT INTO ticket_types (event_id, name, ticket_limit, booked, price_cents, updated_at)
VALUES (?, ?, ?, 0, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, t.EventID, t.Name, t.Limit, t.PriceCents, t.UpdatedAt)
	if isDuplicateKey(err) {
		return model.ErrTicketTypeExists
	}
	return err
}

// UpdateLimit changes the limit and price of an existing ticket type. A limit
// below the current booked count is refused with model.ErrIntegrityViolation.
func (r *TicketTypeRepo) UpdateLimit(ctx context.Context, t model.TicketType) error {
	const q = `UPDATE ticket_types SET ticket_limit = ?, price_cents = ?, updated_at = ?
WHERE event_id = ? AND name = ? AND booked <= ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, t.Limit, t.PriceCents, t.UpdatedAt, t.EventID, t.Name, t.Limit)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	ok, err := r.exists(ctx, t.EventID, t.Name)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrTicketTypeNotFound
	}
	return model.ErrIntegrityViolation
}

// CountLive recomputes, for every ticket type, the sum of quantities of
// BOOKED and CHECKED_IN bookings next to the stored counter.
func (r *TicketTypeRepo) CountLive(ctx context.Context) ([]model.InventoryCount, error) {
	const q = `SELECT t.event_id, t.name, t.ticket_limit, t.booked, COALESCE(SUM(b.quantity), 0)
FROM ticket_types t
LEFT JOIN bookings b
  ON b.event_id = t.event_id AND b.ticket_type = t.name AND b.state IN ('BOOKED', 'CHECKED_IN')
GROUP BY t.event_id, t.name, t.ticket_limit, t.booked
ORDER BY t.event_id, t.name`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InventoryCount
	for rows.Next() {
		var c model.InventoryCount
		if err := rows.Scan(&c.EventID, &c.Name, &c.Limit, &c.Booked, &c.LiveTotal); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *TicketTypeRepo) exists(ctx context.Context, eventID, name string) (bool, error) {
	const q = `SELECT 1 FROM ticket_types WHERE event_id = ? AND name = ?`
	var one int
	err := conn(ctx, r.db).QueryRowContext(ctx, q, eventID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingRepo persists bookings. Rows are never deleted; the state column
// moves from BOOKED to CANCELED or CHECKED_IN through conditional updates
// that only succeed while the row is still BOOKED.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, code, event_id, ticket_type, quantity, unit_price_cents, total_amount_cents,
owner_id, owner_email, state, checked_in_at, checked_in_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b           model.Booking
		state       string
		checkedInAt sql.NullTime
		checkedInBy sql.NullString
	)
	err := s.Scan(
		&b.ID, &b.Code, &b.EventID, &b.TicketType, &b.Quantity, &b.UnitPriceCents, &b.TotalAmountCents,
		&b.OwnerID, &b.OwnerEmail, &state, &checkedInAt, &checkedInBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.State = model.BookingState(state)
	if checkedInAt.Valid {
		t := checkedInAt.Time
		b.CheckedInAt = &t
	}
	if checkedInBy.Valid {
		b.CheckedInBy = checkedInBy.String
	}
	return b, nil
}

// Create inserts a new booking. A collision on the unique code index is
// reported as model.ErrDuplicateCode so the caller can issue a new code.
func (r *BookingRepo) Create(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (id, code, event_id, ticket_type, quantity, unit_price_cents, total_amount_cents,
owner_id, owner_email, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		b.ID, b.Code, b.EventID, b.TicketType, b.Quantity, b.UnitPriceCents, b.TotalAmountCents,
		b.OwnerID, b.OwnerEmail, string(b.State), b.CreatedAt, b.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return model.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns the booking with the given id or model.ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, err
}

// GetByCode returns the booking with the given admission code or
// model.ErrBookingNotFound.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE code = ?`
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, err
}

// CodeExists reports whether a booking already uses code.
func (r *BookingRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT 1 FROM bookings WHERE code = ?`
	var one int
	err := conn(ctx, r.db).QueryRowContext(ctx, q, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByOwner returns the bookings of one owner, newest first.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE owner_id = ? ORDER BY created_at DESC, id`
	return r.list(ctx, q, ownerID)
}

// List returns bookings matching the filter, newest first. A zero Limit
// means no limit.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, f.EventID)
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(f.State))
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	return r.list(ctx, q, args...)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkCanceled moves a BOOKED booking to CANCELED. It reports false, with no
// error, when the booking is missing or no longer BOOKED.
func (r *BookingRepo) MarkCanceled(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `UPDATE bookings SET state = 'CANCELED', updated_at = ? WHERE id = ? AND state = 'BOOKED'`
	return r.claim(ctx, q, now, id)
}

// MarkCheckedIn moves a BOOKED booking to CHECKED_IN and records who admitted
// it. It reports false when the code is unknown or the booking is no longer
// BOOKED.
func (r *BookingRepo) MarkCheckedIn(ctx context.Context, code, actorID string, now time.Time) (bool, error) {
	const q = `UPDATE bookings SET state = 'CHECKED_IN', checked_in_at = ?, checked_in_by = ?, updated_at = ?
WHERE code = ? AND state = 'BOOKED'`
	return r.claim(ctx, q, now, actorID, now, code)
}

func (r *BookingRepo) claim(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package model

import "time"

// TicketType is a named category of tickets for one event with a fixed
// limit. Booked counts the units held by live (BOOKED or CHECKED_IN)
// bookings; the number still available is always derived from the two.
//
// Fields:
//
//	EventID    – external event reference (ticket_types.event_id).
//	Name       – ticket type name, unique within the event.
//	Limit      – total sellable units (ticket_types.ticket_limit).
//	Booked     – units currently held by live bookings.
//	PriceCents – unit price in cents.
//	UpdatedAt  – last change to limit or booked.
type TicketType struct {
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	Limit      int       `json:"limit"`
	Booked     int       `json:"booked"`
	PriceCents int64     `json:"price_cents"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Available returns the number of units that can still be reserved.
func (t TicketType) Available() int {
	return t.Limit - t.Booked
}

// Consistent reports whether the counters satisfy 0 <= available <= limit.
func (t TicketType) Consistent() bool {
	return t.Limit >= 0 && t.Booked >= 0 && t.Booked <= t.Limit
}

// Availability is the read view of a ticket type returned to clients.
type Availability struct {
	EventID    string `json:"event_id"`
	Name       string `json:"name"`
	Limit      int    `json:"limit"`
	Booked     int    `json:"booked"`
	Available  int    `json:"available"`
	PriceCents int64  `json:"price_cents"`
}

// View builds the client-facing availability snapshot.
func (t TicketType) View() Availability {
	return Availability{
		EventID:    t.EventID,
		Name:       t.Name,
		Limit:      t.Limit,
		Booked:     t.Booked,
		Available:  t.Available(),
		PriceCents: t.PriceCents,
	}
}

// InventoryCount pairs the stored booked counter of a ticket type with the
// quantity actually held by its live bookings. The two must be equal.
type InventoryCount struct {
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Limit     int    `json:"limit"`
	Booked    int    `json:"booked"`
	LiveTotal int    `json:"live_total"`
}

// Drifted reports whether the stored counter disagrees with the bookings.
func (c InventoryCount) Drifted() bool {
	return c.Booked != c.LiveTotal || c.Booked < 0 || c.Booked > c.Limit
}

package model

import "time"

// BookingState is the lifecycle state of a booking. BOOKED is the only
// non-terminal state; CANCELED and CHECKED_IN never change again.
type BookingState string

const (
	BookingBooked    BookingState = "BOOKED"
	BookingCanceled  BookingState = "CANCELED"
	BookingCheckedIn BookingState = "CHECKED_IN"
)

// Valid reports whether s is one of the known states.
func (s BookingState) Valid() bool {
	switch s {
	case BookingBooked, BookingCanceled, BookingCheckedIn:
		return true
	}
	return false
}

// Live reports whether a booking in this state still holds inventory.
func (s BookingState) Live() bool {
	return s == BookingBooked || s == BookingCheckedIn
}

// Booking records a user's claim on a quantity of one ticket type.
//
// Fields:
//
//	ID               – primary key (UUID string).
//	Code             – unique admission code presented at the door.
//	EventID          – event the tickets belong to.
//	TicketType       – ticket type name within the event.
//	Quantity         – number of units, at least one.
//	UnitPriceCents   – price per unit at booking time.
//	TotalAmountCents – UnitPriceCents * Quantity, fixed at creation.
//	OwnerID          – identity that created the booking.
//	OwnerEmail       – optional address used for notifications.
//	State            – BOOKED, CANCELED or CHECKED_IN.
//	CheckedInAt      – set once when the booking is admitted.
//	CheckedInBy      – staff identity that admitted the booking.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last state change.
type Booking struct {
	ID               string       `json:"id"`
	Code             string       `json:"code"`
	EventID          string       `json:"event_id"`
	TicketType       string       `json:"ticket_type"`
	Quantity         int          `json:"quantity"`
	UnitPriceCents   int64        `json:"unit_price_cents"`
	TotalAmountCents int64        `json:"total_amount_cents"`
	OwnerID          string       `json:"owner_id"`
	OwnerEmail       string       `json:"owner_email,omitempty"`
	State            BookingState `json:"state"`
	CheckedInAt      *time.Time   `json:"checked_in_at,omitempty"`
	CheckedInBy      string       `json:"checked_in_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// BookingFilter narrows administrative booking listings. Zero values mean
// "no filter".
type BookingFilter struct {
	EventID string
	State   BookingState
	Limit   int
	Offset  int
}

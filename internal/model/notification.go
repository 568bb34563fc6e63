package model

import "time"

// NotificationKind names the lifecycle event a notification reports.
type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking.confirmed"
	NotificationBookingCanceled  NotificationKind = "booking.canceled"
)

// Notification is the payload handed to the notification dispatcher after a
// booking is created or canceled. It carries everything a downstream
// consumer needs to render a message without reading the database.
type Notification struct {
	Kind             NotificationKind `json:"kind"`
	BookingID        string           `json:"booking_id"`
	Code             string           `json:"code"`
	OwnerID          string           `json:"owner_id"`
	OwnerEmail       string           `json:"owner_email,omitempty"`
	EventID          string           `json:"event_id"`
	TicketType       string           `json:"ticket_type"`
	Quantity         int              `json:"quantity"`
	TotalAmountCents int64            `json:"total_amount_cents"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// NewNotification builds a notification of the given kind from a booking.
func NewNotification(kind NotificationKind, b Booking, at time.Time) Notification {
	return Notification{
		Kind:             kind,
		BookingID:        b.ID,
		Code:             b.Code,
		OwnerID:          b.OwnerID,
		OwnerEmail:       b.OwnerEmail,
		EventID:          b.EventID,
		TicketType:       b.TicketType,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		OccurredAt:       at,
	}
}

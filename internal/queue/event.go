// Package queue carries booking notifications over the message broker: the
// payload format, a publisher used by the booking service and a background
// consumer that turns messages into emails and log lines.
package queue

import (
    "fmt"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// Queue names. Each notification kind has its own durable queue and the
// kind string doubles as the routing key on the default exchange.
const (
    BookingConfirmedQueue = string(model.NotificationBookingConfirmed)
    BookingCanceledQueue  = string(model.NotificationBookingCanceled)
)

// BookingEvent is published whenever a booking is confirmed or canceled.
// It contains enough information for downstream consumers to log or notify
// without querying the primary database. Timestamps travel as RFC 3339
// strings so non-Go consumers can read them directly.
type BookingEvent struct {
    Kind             string `json:"kind"`
    BookingID        string `json:"booking_id"`
    Code             string `json:"code"`
    OwnerID          string `json:"owner_id"`
    OwnerEmail       string `json:"owner_email,omitempty"`
    EventID          string `json:"event_id"`
    TicketType       string `json:"ticket_type"`
    Quantity         int    `json:"quantity"`
    TotalAmountCents int64  `json:"total_amount_cents"`
    OccurredAt       string `json:"occurred_at"`
}

// NewBookingEvent converts a notification into its wire form.
func NewBookingEvent(n model.Notification) BookingEvent {
    return BookingEvent{
        Kind:             string(n.Kind),
        BookingID:        n.BookingID,
        Code:             n.Code,
        OwnerID:          n.OwnerID,
        OwnerEmail:       n.OwnerEmail,
        EventID:          n.EventID,
        TicketType:       n.TicketType,
        Quantity:         n.Quantity,
        TotalAmountCents: n.TotalAmountCents,
        OccurredAt:       n.OccurredAt.UTC().Format(time.RFC3339Nano),
    }
}

// Notification converts the event back. Unknown kinds are rejected so a
// malformed message is dead-lettered instead of mailed.
func (e BookingEvent) Notification() (model.Notification, error) {
    kind := model.NotificationKind(e.Kind)
    if kind != model.NotificationBookingConfirmed && kind != model.NotificationBookingCanceled {
        return model.Notification{}, fmt.Errorf("unknown event kind %q", e.Kind)
    }
    if e.BookingID == "" || e.Code == "" {
        return model.Notification{}, fmt.Errorf("event %s without booking id or code", e.Kind)
    }
    var at time.Time
    if e.OccurredAt != "" {
        t, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
        if err != nil {
            return model.Notification{}, fmt.Errorf("occurred_at: %w", err)
        }
        at = t
    }
    return model.Notification{
        Kind:             kind,
        BookingID:        e.BookingID,
        Code:             e.Code,
        OwnerID:          e.OwnerID,
        OwnerEmail:       e.OwnerEmail,
        EventID:          e.EventID,
        TicketType:       e.TicketType,
        Quantity:         e.Quantity,
        TotalAmountCents: e.TotalAmountCents,
        OccurredAt:       at,
    }, nil
}

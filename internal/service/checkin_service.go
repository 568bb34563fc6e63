package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// CheckinStore is the part of booking storage used at the door.
type CheckinStore interface {
	GetByCode(ctx context.Context, code string) (model.Booking, error)
	MarkCheckedIn(ctx context.Context, code, actorID string, now time.Time) (bool, error)
}

// CheckinService validates admission codes and admits their holders. It
// never touches inventory.
type CheckinService struct {
	store CheckinStore
	clock clock.Clock
	log   logrus.FieldLogger
}

// NewCheckinService returns a CheckinService. A nil logger selects the
// logrus standard logger.
func NewCheckinService(store CheckinStore, clk clock.Clock, log logrus.FieldLogger) *CheckinService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CheckinService{store: store, clock: clk, log: log}
}

// NormalizeCode trims whitespace and upper-cases a code typed or scanned at
// the door.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Verify looks a code up without changing anything. With a non-empty
// eventID, a booking for another event is reported as not found.
func (s *CheckinService) Verify(ctx context.Context, code, eventID string) (model.Booking, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Booking{}, model.ErrBookingNotFound
	}
	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return model.Booking{}, err
	}
	if eventID != "" && b.EventID != eventID {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}

// CheckInInput identifies the code, the optional event scope and the staff
// member performing admission.
type CheckInInput struct {
	Code    string
	EventID string
	ActorID string
}

// CheckIn admits a BOOKED booking exactly once. Concurrent attempts on the
// same code are resolved by the conditional update: one wins, the others
// see model.ErrAlreadyCheckedIn.
func (s *CheckinService) CheckIn(ctx context.Context, in CheckInInput) (model.Booking, error) {
	b, err := s.Verify(ctx, in.Code, in.EventID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := checkinConflict(b.State); err != nil {
		return model.Booking{}, err
	}

	now := s.clock.Now()
	ok, err := s.store.MarkCheckedIn(ctx, b.Code, in.ActorID, now)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		cur, err := s.store.GetByCode(ctx, b.Code)
		if err != nil {
			return model.Booking{}, err
		}
		if err := checkinConflict(cur.State); err != nil {
			return model.Booking{}, err
		}
		return model.Booking{}, fmt.Errorf("check in %s: %w", b.Code, model.ErrConcurrentUpdate)
	}

	b.State = model.BookingCheckedIn
	b.CheckedInAt = &now
	b.CheckedInBy = in.ActorID
	b.UpdatedAt = now
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "event_id": b.EventID, "by": in.ActorID}).Info("booking checked in")
	return b, nil
}

func checkinConflict(state model.BookingState) error {
	switch state {
	case model.BookingCheckedIn:
		return model.ErrAlreadyCheckedIn
	case model.BookingCanceled:
		return model.ErrNotBooked
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingStore persists bookings. MarkCanceled and MarkCheckedIn must only
// succeed while the stored state is still BOOKED.
type BookingStore interface {
	CodeLookup
	Create(ctx context.Context, b model.Booking) error
	GetByID(ctx context.Context, id string) (model.Booking, error)
	GetByCode(ctx context.Context, code string) (model.Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	MarkCanceled(ctx context.Context, id string, now time.Time) (bool, error)
	MarkCheckedIn(ctx context.Context, code, actorID string, now time.Time) (bool, error)
}

// Inventory is the part of the ledger the booking lifecycle needs.
type Inventory interface {
	Reserve(ctx context.Context, eventID, name string, qty int) error
	Release(ctx context.Context, eventID, name string, qty int) error
	Get(ctx context.Context, eventID, name string) (model.TicketType, error)
}

const maxInsertAttempts = 3

// errLostRace marks a conditional update that matched no row. It never
// leaves the service; the caller classifies it with a fresh read.
var errLostRace = errors.New("booking state changed before update")

// BookingService drives bookings from creation to cancellation. Creation
// reserves inventory and stores the booking in one transaction, so either
// both happen or neither does. Cancellation flips the state and releases
// inventory the same way.
type BookingService struct {
	store         BookingStore
	inventory     Inventory
	tx            Transactor
	codes         *CodeIssuer
	clock         clock.Clock
	log           logrus.FieldLogger
	dispatcher    Dispatcher
	availability  AvailabilityCache
	notifyTimeout time.Duration
	notifier      *AsyncDispatcher
}

// BookingServiceOption customizes a BookingService.
type BookingServiceOption func(*BookingService)

// WithDispatcher sets where booking notifications are delivered.
func WithDispatcher(d Dispatcher) BookingServiceOption {
	return func(s *BookingService) { s.dispatcher = d }
}

// WithNotifyTimeout bounds a single notification delivery.
func WithNotifyTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithAvailabilityCache sets the cache dropped after every committed
// reservation or release.
func WithAvailabilityCache(c AvailabilityCache) BookingServiceOption {
	return func(s *BookingService) {
		if c != nil {
			s.availability = c
		}
	}
}

// WithBookingLogger sets the service logger.
func WithBookingLogger(l logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewBookingService wires the lifecycle. Without WithDispatcher,
// notifications are only logged.
func NewBookingService(store BookingStore, inventory Inventory, tx Transactor, codes *CodeIssuer, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		store:         store,
		inventory:     inventory,
		tx:            tx,
		codes:         codes,
		clock:         clk,
		log:           logrus.StandardLogger(),
		availability:  noAvailabilityCache{},
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = LogDispatcher{Log: s.log}
	}
	s.notifier = NewAsyncDispatcher(s.dispatcher, s.notifyTimeout, s.log)
	return s
}

// CreateBookingInput carries a booking request. The unit price is taken
// from the ticket type, never from the caller.
type CreateBookingInput struct {
	EventID    string
	TicketType string
	Quantity   int
	OwnerID    string
	OwnerEmail string
}

// Create reserves inventory, issues a code and stores a BOOKED booking
// inside one transaction. Any failure after the reservation, including
// cancellation of ctx, rolls the reservation back with the rest.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.TicketType = strings.TrimSpace(in.TicketType)
	if in.Quantity < 1 {
		return model.Booking{}, model.ErrInvalidQuantity
	}
	if in.EventID == "" || in.TicketType == "" || in.OwnerID == "" {
		return model.Booking{}, model.ErrInvalidInput
	}

	var (
		b        model.Booking
		reserved bool
	)
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.inventory.Reserve(txCtx, in.EventID, in.TicketType, in.Quantity); err != nil {
			return err
		}
		reserved = true

		// The reservation holds the row, so the price read here is the one
		// in force when the units were taken.
		tt, err := s.inventory.Get(txCtx, in.EventID, in.TicketType)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		b = model.Booking{
			ID:               uuid.NewString(),
			EventID:          in.EventID,
			TicketType:       in.TicketType,
			Quantity:         in.Quantity,
			UnitPriceCents:   tt.PriceCents,
			TotalAmountCents: tt.PriceCents * int64(in.Quantity),
			OwnerID:          in.OwnerID,
			OwnerEmail:       in.OwnerEmail,
			State:            model.BookingBooked,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return s.persist(txCtx, &b)
	})
	if err != nil {
		if reserved {
			s.log.WithError(err).WithFields(logrus.Fields{
				"event_id":    in.EventID,
				"ticket_type": in.TicketType,
				"quantity":    in.Quantity,
			}).Warn("booking not stored, reservation rolled back")
		}
		return model.Booking{}, err
	}

	s.availability.Invalidate(ctx, b.EventID)
	s.log.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"event_id":    b.EventID,
		"ticket_type": b.TicketType,
		"quantity":    b.Quantity,
	}).Info("booking created")
	s.notifier.Notify(ctx, model.NewNotification(model.NotificationBookingConfirmed, b, b.CreatedAt))
	return b, nil
}

// persist stores b, issuing a fresh code whenever the unique index rejects
// the previous one.
func (s *BookingService) persist(ctx context.Context, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		code, err := s.codes.Issue(ctx)
		if err != nil {
			return err
		}
		b.Code = code
		err = s.store.Create(ctx, *b)
		if !errors.Is(err, model.ErrDuplicateCode) || attempt == maxInsertAttempts {
			return err
		}
		s.log.WithField("attempt", attempt).Warn("booking code collided on insert, reissuing")
	}
}

// CancelBookingInput identifies the booking and who asks for cancellation.
type CancelBookingInput struct {
	BookingID string
	Requester model.Principal
}

// Cancel moves a BOOKED booking to CANCELED and returns its units to the
// ledger. Only the owner or an administrator may cancel; checked-in and
// already canceled bookings are refused.
func (s *BookingService) Cancel(ctx context.Context, in CancelBookingInput) (model.Booking, error) {
	var out model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.store.GetByID(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		if !canAccess(b, in.Requester) {
			return model.ErrForbidden
		}
		if err := cancelConflict(b.State); err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.store.MarkCanceled(txCtx, b.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		if err := s.inventory.Release(txCtx, b.EventID, b.TicketType, b.Quantity); err != nil {
			return fmt.Errorf("release inventory: %w", err)
		}

		b.State = model.BookingCanceled
		b.UpdatedAt = now
		out = b
		return nil
	})
	if errors.Is(err, errLostRace) {
		err = s.cancelLost(ctx, in.BookingID)
	}
	if err != nil {
		return model.Booking{}, err
	}

	s.availability.Invalidate(ctx, out.EventID)
	s.log.WithFields(logrus.Fields{"booking_id": out.ID, "by": in.Requester.ID}).Info("booking canceled")
	s.notifier.Notify(ctx, model.NewNotification(model.NotificationBookingCanceled, out, out.UpdatedAt))
	return out, nil
}

// cancelLost reports what the winner of a lost race did. The read runs
// after rollback so it sees the committed state rather than the snapshot
// of the aborted transaction.
func (s *BookingService) cancelLost(ctx context.Context, id string) error {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := cancelConflict(cur.State); err != nil {
		return err
	}
	return fmt.Errorf("cancel booking %s: %w", id, model.ErrConcurrentUpdate)
}

func cancelConflict(state model.BookingState) error {
	switch state {
	case model.BookingCheckedIn:
		return model.ErrInvalidTransition
	case model.BookingCanceled:
		return model.ErrAlreadyCanceled
	}
	return nil
}

func canAccess(b model.Booking, p model.Principal) bool {
	return p.IsAdmin() || (p.ID != "" && p.ID == b.OwnerID)
}

// Get returns a booking visible to the requester.
func (s *BookingService) Get(ctx context.Context, id string, requester model.Principal) (model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !canAccess(b, requester) {
		return model.Booking{}, model.ErrForbidden
	}
	return b, nil
}

// ListMine returns the requester's own bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, ownerID string) ([]model.Booking, error) {
	if ownerID == "" {
		return nil, model.ErrInvalidInput
	}
	return s.store.ListByOwner(ctx, ownerID)
}

// ListAll returns bookings across owners. Callers restrict it to
// administrators.
func (s *BookingService) ListAll(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, model.ErrInvalidInput
	}
	return s.store.List(ctx, f)
}

// Close waits for in-flight notifications.
func (s *BookingService) Close() {
	s.notifier.Wait()
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// TicketTypeStore is the storage primitive behind the inventory ledger.
// Reserve and Release must each be a single atomic conditional update.
type TicketTypeStore interface {
	Reserve(ctx context.Context, eventID, name string, qty int, now time.Time) error
	Release(ctx context.Context, eventID, name string, qty int, now time.Time) error
	Get(ctx context.Context, eventID, name string) (model.TicketType, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.TicketType, error)
	Insert(ctx context.Context, t model.TicketType) error
	UpdateLimit(ctx context.Context, t model.TicketType) error
}

// Transactor runs fn inside a database transaction carried by the context.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AvailabilityCache holds published availability per event. Invalidate is
// called once a change to an event's counters has committed.
type AvailabilityCache interface {
	Invalidate(ctx context.Context, eventID string)
}

type noAvailabilityCache struct{}

func (noAvailabilityCache) Invalidate(context.Context, string) {}

// InventoryLedger owns the available counters of every ticket type. No
// caller may adjust booked or available except through Reserve and Release.
type InventoryLedger struct {
	store TicketTypeStore
	tx    Transactor
	clock clock.Clock
	log   logrus.FieldLogger
	cache AvailabilityCache
}

// LedgerOption customizes an InventoryLedger.
type LedgerOption func(*InventoryLedger)

// WithLedgerLogger sets the logger used for integrity reports.
func WithLedgerLogger(l logrus.FieldLogger) LedgerOption {
	return func(s *InventoryLedger) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLedgerCache sets the availability cache dropped after Define.
func WithLedgerCache(c AvailabilityCache) LedgerOption {
	return func(s *InventoryLedger) {
		if c != nil {
			s.cache = c
		}
	}
}

// NewInventoryLedger builds a ledger over the given store.
func NewInventoryLedger(store TicketTypeStore, tx Transactor, clk clock.Clock, opts ...LedgerOption) *InventoryLedger {
	l := &InventoryLedger{
		store: store,
		tx:    tx,
		clock: clk,
		log:   logrus.StandardLogger(),
		cache: noAvailabilityCache{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve decreases available by qty when at least qty units remain. It
// fails with model.ErrInsufficientInventory otherwise and is never retried.
func (l *InventoryLedger) Reserve(ctx context.Context, eventID, name string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	return l.store.Reserve(ctx, eventID, name, qty, l.clock.Now())
}

// Release gives qty units back. A release that would push available above
// the limit fails with model.ErrIntegrityViolation and changes nothing.
func (l *InventoryLedger) Release(ctx context.Context, eventID, name string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	err := l.store.Release(ctx, eventID, name, qty, l.clock.Now())
	if errors.Is(err, model.ErrIntegrityViolation) {
		l.log.WithFields(logrus.Fields{
			"event_id":    eventID,
			"ticket_type": name,
			"quantity":    qty,
		}).Error("inventory release refused: would exceed limit")
	}
	return err
}

// Get returns a snapshot of one ticket type. A stored row whose counters
// break 0 <= available <= limit is reported as model.ErrIntegrityViolation.
func (l *InventoryLedger) Get(ctx context.Context, eventID, name string) (model.TicketType, error) {
	t, err := l.store.Get(ctx, eventID, name)
	if err != nil {
		return model.TicketType{}, err
	}
	if !t.Consistent() {
		return model.TicketType{}, model.ErrIntegrityViolation
	}
	return t, nil
}

// List returns the ticket types of an event.
func (l *InventoryLedger) List(ctx context.Context, eventID string) ([]model.TicketType, error) {
	list, err := l.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if !t.Consistent() {
			return nil, model.ErrIntegrityViolation
		}
	}
	return list, nil
}

// DefineTicketTypeInput describes a ticket type to create or resize.
type DefineTicketTypeInput struct {
	EventID    string
	Name       string
	Limit      int
	PriceCents int64
}

// Define creates a ticket type or changes the limit and price of an
// existing one. Lowering the limit below the units already booked fails
// with model.ErrIntegrityViolation.
func (l *InventoryLedger) Define(ctx context.Context, in DefineTicketTypeInput) (model.TicketType, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Name = strings.TrimSpace(in.Name)
	if in.EventID == "" || in.Name == "" {
		return model.TicketType{}, model.ErrInvalidInput
	}
	if in.Limit < 0 {
		return model.TicketType{}, model.ErrInvalidLimit
	}
	if in.PriceCents < 0 {
		return model.TicketType{}, model.ErrInvalidPrice
	}

	t := model.TicketType{
		EventID:    in.EventID,
		Name:       in.Name,
		Limit:      in.Limit,
		PriceCents: in.PriceCents,
		UpdatedAt:  l.clock.Now(),
	}
	var out model.TicketType
	err := l.tx.WithTx(ctx, func(txCtx context.Context) error {
		err := l.store.Insert(txCtx, t)
		if errors.Is(err, model.ErrTicketTypeExists) {
			err = l.store.UpdateLimit(txCtx, t)
		}
		if err != nil {
			return err
		}
		out, err = l.store.Get(txCtx, t.EventID, t.Name)
		return err
	})
	if err != nil {
		return model.TicketType{}, err
	}
	l.cache.Invalidate(ctx, out.EventID)
	return out, nil
}

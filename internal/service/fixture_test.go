package service

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/testutil"
)

type fixture struct {
	db       *sql.DB
	tickets  *repository.TicketTypeRepo
	bookings *repository.BookingRepo
	ledger   *InventoryLedger
	svc      *BookingService
	checkin  *CheckinService
	sent     *recordingDispatcher
}

// newFixture builds the full stack over a fresh SQLite database. wrap, when
// non-nil, wraps the booking repository to inject failures.
func newFixture(t *testing.T, wrap func(BookingStore) BookingStore, opts ...BookingServiceOption) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	clk := clock.NewSystem()
	log := quietLogger()

	f := &fixture{
		db:       db,
		tickets:  repository.NewTicketTypeRepo(db),
		bookings: repository.NewBookingRepo(db),
		sent:     &recordingDispatcher{},
	}
	txm := repository.NewTxManager(db)
	f.ledger = NewInventoryLedger(f.tickets, txm, clk, WithLedgerLogger(log))

	var store BookingStore = f.bookings
	if wrap != nil {
		store = wrap(store)
	}
	codes := NewCodeIssuer(store, clk, WithCodeLogger(log))
	opts = append([]BookingServiceOption{WithDispatcher(f.sent), WithBookingLogger(log)}, opts...)
	f.svc = NewBookingService(store, f.ledger, txm, codes, clk, opts...)
	f.checkin = NewCheckinService(store, clk, log)
	t.Cleanup(f.svc.Close)
	return f
}

// rewire builds a second BookingService over the fixture's database with
// some collaborators substituted. Nil arguments keep the fixture's own.
func (f *fixture) rewire(t *testing.T, tickets TicketTypeStore, store BookingStore, tx Transactor) *BookingService {
	t.Helper()
	clk := clock.NewSystem()
	txm := repository.NewTxManager(f.db)
	if tickets == nil {
		tickets = f.tickets
	}
	if store == nil {
		store = f.bookings
	}
	if tx == nil {
		tx = txm
	}
	ledger := NewInventoryLedger(tickets, txm, clk, WithLedgerLogger(quietLogger()))
	svc := NewBookingService(store, ledger, tx, NewCodeIssuer(store, clk), clk,
		WithDispatcher(f.sent),
		WithBookingLogger(quietLogger()),
	)
	t.Cleanup(svc.Close)
	return svc
}

func (f *fixture) counters(t *testing.T, eventID, name string) (limit, booked int) {
	t.Helper()
	return testutil.Counters(t, f.db, eventID, name)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingDispatcher) Dispatch(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingDispatcher) kinds() []model.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

func customer(id string) model.Principal { return model.Principal{ID: id, Role: model.RoleCustomer} }

func admin() model.Principal { return model.Principal{ID: "admin-1", Role: model.RoleAdmin} }

package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Dispatcher delivers booking notifications to an external channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, n model.Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n model.Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// LogDispatcher only logs notifications. It is used when no broker is
// configured.
type LogDispatcher struct {
	Log logrus.FieldLogger
}

func (d LogDispatcher) Dispatch(_ context.Context, n model.Notification) error {
	l := d.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	l.WithFields(logrus.Fields{
		"kind":       n.Kind,
		"booking_id": n.BookingID,
		"code":       n.Code,
		"owner_id":   n.OwnerID,
	}).Info("booking notification")
	return nil
}

const defaultNotifyTimeout = 10 * time.Second

// AsyncDispatcher runs a Dispatcher in the background. Notify never blocks
// the caller and never reports an error to it; delivery failures are
// logged and dropped. The caller's cancellation does not abort delivery,
// only the dispatcher timeout does.
type AsyncDispatcher struct {
	next    Dispatcher
	timeout time.Duration
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewAsyncDispatcher wraps next. A non-positive timeout selects the default.
func NewAsyncDispatcher(next Dispatcher, timeout time.Duration, log logrus.FieldLogger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AsyncDispatcher{next: next, timeout: timeout, log: log}
}

// Notify schedules delivery of n and returns immediately.
func (d *AsyncDispatcher) Notify(ctx context.Context, n model.Notification) {
	if d == nil || d.next == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithFields(logrus.Fields{"kind": n.Kind, "booking_id": n.BookingID}).
					Errorf("notification dispatcher panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.next.Dispatch(ctx, n); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"kind":       n.Kind,
				"booking_id": n.BookingID,
			}).Warn("booking notification failed")
		}
	}()
}

// Wait blocks until every scheduled notification has finished.
func (d *AsyncDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

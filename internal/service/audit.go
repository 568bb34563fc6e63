package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// InventoryCounter recomputes booked counters from the bookings table.
type InventoryCounter interface {
	CountLive(ctx context.Context) ([]model.InventoryCount, error)
}

const auditRunTimeout = 30 * time.Second

// InventoryAuditor periodically checks that every ticket type's booked
// counter equals the quantity held by its BOOKED and CHECKED_IN bookings.
// It only reports drift; it never rewrites counters.
type InventoryAuditor struct {
	counter InventoryCounter
	log     logrus.FieldLogger
}

// NewInventoryAuditor returns an auditor reading through counter.
func NewInventoryAuditor(counter InventoryCounter, log logrus.FieldLogger) *InventoryAuditor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InventoryAuditor{counter: counter, log: log}
}

// Audit runs one pass and returns the ticket types whose counters drifted.
func (a *InventoryAuditor) Audit(ctx context.Context) ([]model.InventoryCount, error) {
	counts, err := a.counter.CountLive(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []model.InventoryCount
	for _, c := range counts {
		if !c.Drifted() {
			continue
		}
		drifted = append(drifted, c)
		a.log.WithFields(logrus.Fields{
			"event_id":    c.EventID,
			"ticket_type": c.Name,
			"limit":       c.Limit,
			"booked":      c.Booked,
			"live_total":  c.LiveTotal,
		}).Error("inventory counter drift detected")
	}
	a.log.WithFields(logrus.Fields{"ticket_types": len(counts), "drifted": len(drifted)}).Debug("inventory audit finished")
	return drifted, nil
}

// Run schedules Audit every interval until ctx is done. A non-positive
// interval disables the job and Run just waits for ctx.
func (a *InventoryAuditor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(context.Background(), auditRunTimeout)
			defer cancel()
			if _, err := a.Audit(runCtx); err != nil {
				a.log.WithError(err).Warn("inventory audit failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	a.log.WithField("interval", interval.String()).Info("inventory audit scheduled")

	<-ctx.Done()
	return sched.Shutdown()
}

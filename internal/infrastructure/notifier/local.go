package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/internal/notify"
)

// Sink receives a trigger at delivery time.
type Sink func(trigger notify.Trigger)

// Local is the default notification platform: a BoltDB-backed trigger
// registry drained by a cron job. It stands in for the device notification
// API and implements the notify.Scheduler boundary.
type Local struct {
	store  *Store
	sink   Sink
	logger *zap.Logger
	cron   *cron.Cron
}

// NewLocal builds the local scheduler. The sink defaults to logging the
// delivery when nil.
func NewLocal(store *Store, interval time.Duration, sink Sink, logger *zap.Logger) *Local {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Local{
		store:  store,
		sink:   sink,
		logger: logger,
		cron:   cron.New(cron.WithSeconds()),
	}
	if l.sink == nil {
		l.sink = func(trigger notify.Trigger) {
			logger.Info("reminder fired",
				zap.String("notification_id", trigger.ID),
				zap.String("title", trigger.Title))
		}
	}

	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	_, _ = l.cron.AddFunc(schedule, func() {
		if err := l.Drain(time.Now()); err != nil {
			l.logger.Error("trigger drain failed", zap.Error(err))
		}
	})

	return l
}

// Start launches the dispatch loop.
func (l *Local) Start() {
	if l == nil || l.cron == nil {
		return
	}
	l.cron.Start()
	l.logger.Info("notification dispatcher started")
}

// Stop gracefully stops the dispatch loop.
func (l *Local) Stop(ctx context.Context) {
	if l == nil || l.cron == nil {
		return
	}
	stopCtx := l.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	l.logger.Info("notification dispatcher stopped")
}

// Drain fires every due trigger, then removes one-shot triggers and re-arms
// repeating ones. Monthly triggers are re-armed via calendar arithmetic since
// no native monthly repeat exists.
func (l *Local) Drain(now time.Time) error {
	due, err := l.store.Due(now)
	if err != nil {
		return err
	}

	for _, trigger := range due {
		l.sink(trigger)

		if trigger.Repeat == domain.RepeatNone {
			if err := l.store.Delete(trigger.ID); err != nil {
				l.logger.Warn("failed to remove fired trigger",
					zap.String("notification_id", trigger.ID),
					zap.Error(err))
			}
			continue
		}

		trigger.FireAt = nextFireTime(trigger.FireAt, trigger.Repeat, now)
		if err := l.store.Put(trigger); err != nil {
			l.logger.Error("failed to re-arm trigger",
				zap.String("notification_id", trigger.ID),
				zap.Error(err))
		}
	}
	return nil
}

// RequestPermission implements notify.Scheduler. The local platform needs no
// user grant.
func (l *Local) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// Schedule implements notify.Scheduler.
func (l *Local) Schedule(ctx context.Context, trigger notify.Trigger) (string, error) {
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	if trigger.FireAt.IsZero() {
		return "", fmt.Errorf("trigger has no fire time")
	}
	if err := l.store.Put(trigger); err != nil {
		return "", err
	}
	return trigger.ID, nil
}

// Cancel implements notify.Scheduler.
func (l *Local) Cancel(ctx context.Context, id string) error {
	return l.store.Delete(id)
}

// ScheduledIDs implements notify.Scheduler.
func (l *Local) ScheduledIDs(ctx context.Context) ([]string, error) {
	return l.store.IDs()
}

// nextFireTime advances a repeating trigger past now.
func nextFireTime(fireAt time.Time, repeat domain.RepeatType, now time.Time) time.Time {
	next := fireAt
	for !next.After(now) {
		switch repeat {
		case domain.RepeatDaily:
			next = next.AddDate(0, 0, 1)
		case domain.RepeatWeekly:
			next = next.AddDate(0, 0, 7)
		case domain.RepeatMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			return next
		}
	}
	return next
}

var _ notify.Scheduler = (*Local)(nil)

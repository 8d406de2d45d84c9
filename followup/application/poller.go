package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTickInterval = time.Minute
	TickLockKey         = "lock:followup:tick"
)

// TickLocker grants the tick to a single process. ok is false when another
// process holds it.
type TickLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Ticker runs one scheduling pass.
type Ticker interface {
	Tick(ctx context.Context) (TickReport, error)
}

// Poller drives a Ticker on a fixed interval.
type Poller struct {
	ticker   Ticker
	interval time.Duration
	locker   TickLocker
}

// NewPoller crea el poller. locker puede ser nil (proceso único).
func NewPoller(ticker Ticker, interval time.Duration, locker TickLocker) *Poller {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Poller{ticker: ticker, interval: interval, locker: locker}
}

// Start runs the loop in the background until ctx is cancelled. The
// returned channel is closed once the loop has exited.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return done
}

// Run ticks once immediately and then on every interval. It blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	logrus.Infof("[FOLLOWUP_POLLER] Started, interval %s", p.interval)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("[FOLLOWUP_POLLER] Stopped")
			return
		case <-t.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single tick if this process holds the tick lock.
func (p *Poller) RunOnce(ctx context.Context) {
	if p.locker != nil {
		ok, err := p.locker.TryLock(ctx, TickLockKey, p.lockTTL())
		if err != nil {
			logrus.WithError(err).Warn("[FOLLOWUP_POLLER] Tick lock unavailable, skipping tick")
			return
		}
		if !ok {
			logrus.Debug("[FOLLOWUP_POLLER] Another instance holds the tick")
			return
		}
	}

	start := time.Now()
	report, err := p.ticker.Tick(ctx)
	if err != nil {
		logrus.WithError(err).Error("[FOLLOWUP_POLLER] Tick failed")
		return
	}
	if report.TasksProcessed > 0 || report.EventsPromoted > 0 {
		logrus.WithFields(logrus.Fields{
			"tasks":    report.TasksProcessed,
			"events":   report.EventsPromoted,
			"duration": time.Since(start).String(),
		}).Info("[FOLLOWUP_POLLER] Tick done")
	}
}

// lockTTL expires just before the next tick.
func (p *Poller) lockTTL() time.Duration {
	if p.interval > 10*time.Second {
		return p.interval - 5*time.Second
	}
	return p.interval
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule is the field agent's connectivity/flush interval.
const DefaultSchedule = "@every 30s"

// Job is the work run on every tick.
type Job func(ctx context.Context)

// Poller runs a Job on a cron schedule in a background loop. A tick that
// arrives while the previous run is still in flight is skipped.
type Poller struct {
	name     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	inflightMu sync.Mutex
	inflight   bool
}

// parser accepts five-field expressions and descriptors such as
// "@every 30s" or "@hourly".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewPoller parses spec and returns a stopped Poller.
func NewPoller(name, spec string, job Job, logger *slog.Logger) (*Poller, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		name:     name,
		schedule: schedule,
		job:      job,
		logger:   logger.With(slog.String("poller", name)),
	}, nil
}

// Start launches the background loop. The job runs once immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("poller %s already started", p.name)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(loopCtx)
	p.logger.Info("poller started")
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.RunOnce(ctx)

	for {
		now := time.Now()
		timer := time.NewTimer(p.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce runs the job unless a run is already in flight, and reports
// whether it ran. It is used by the loop and by on-demand triggers.
func (p *Poller) RunOnce(ctx context.Context) bool {
	if !p.tryAcquire() {
		p.logger.Debug("tick skipped, previous run still in flight")
		return false
	}
	defer p.release()
	p.job(ctx)
	return true
}

func (p *Poller) tryAcquire() bool {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	if p.inflight {
		return false
	}
	p.inflight = true
	return true
}

func (p *Poller) release() {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	p.inflight = false
}

// Next returns the first tick after from.
func (p *Poller) Next(from time.Time) time.Time {
	return p.schedule.Next(from)
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("poller stopped")
	return nil
}

package offline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

// Deps holds the collaborators of a Reconciler. Hub, Metrics and Logger
// are optional; zero batch limits take the package defaults.
type Deps struct {
	Local           *LocalStore
	Remote          Remote
	Hub             streaming.EventHub
	Metrics         *metrics.Collector
	Logger          *slog.Logger
	MaxBatchRecords int
	MaxBatchBytes   int
}

// Reconciler keeps the local record set eventually consistent with the
// server. Saves and deletes are local first; pushes are best-effort and
// rely on server-side id dedup, so overlapping flushes are harmless.
type Reconciler struct {
	local   *LocalStore
	remote  Remote
	hub     streaming.EventHub
	metrics *metrics.Collector
	logger  *slog.Logger

	maxBatchRecords int
	maxBatchBytes   int

	mu     sync.RWMutex
	status schema.ConnectivityStatus

	wg sync.WaitGroup
}

// NewReconciler creates a Reconciler. The agent assumes it is online until
// the first failed request or probe says otherwise.
func NewReconciler(deps Deps) *Reconciler {
	r := &Reconciler{
		local:   deps.Local,
		remote:  deps.Remote,
		hub:     deps.Hub,
		metrics: deps.Metrics,
		logger:  logging.Default(deps.Logger),
		status:  schema.StatusOnline,

		maxBatchRecords: deps.MaxBatchRecords,
		maxBatchBytes:   deps.MaxBatchBytes,
	}
	if r.maxBatchRecords <= 0 {
		r.maxBatchRecords = DefaultMaxBatchRecords
	}
	if r.maxBatchBytes <= 0 {
		r.maxBatchBytes = DefaultMaxBatchBytes
	}
	r.metrics.SetOnline(true)
	return r
}

// Save stores rec locally, marks it pending and starts a background flush.
// Only a local write failure is returned.
func (r *Reconciler) Save(ctx context.Context, rec schema.Assessment) error {
	ctx = logging.WithAssessmentID(ctx, rec.ID)
	if err := r.local.Upsert(ctx, rec); err != nil {
		r.logger.ErrorContext(ctx, "local save failed", slog.String("error", err.Error()))
		return err
	}
	pending := r.pendingCount(ctx)
	r.metrics.SetPending(pending)
	r.logger.InfoContext(ctx, "assessment saved locally", slog.Int("pending", pending))
	r.publish(ctx, streaming.SyncEvent{Type: schema.EventSaved, AssessmentID: rec.ID, Pending: pending})

	r.background(ctx, func(ctx context.Context) {
		_, _ = r.Flush(ctx)
	})
	return nil
}

// Delete removes id locally and from the PendingSet, then asks the server
// to delete its copy in the background. A failed remote delete is logged
// and dropped.
func (r *Reconciler) Delete(ctx context.Context, id string) (bool, error) {
	ctx = logging.WithAssessmentID(ctx, id)
	found, err := r.local.Remove(ctx, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "local delete failed", slog.String("error", err.Error()))
		return false, err
	}
	pending := r.pendingCount(ctx)
	r.metrics.SetPending(pending)
	r.publish(ctx, streaming.SyncEvent{Type: schema.EventDeleted, AssessmentID: id, Pending: pending})

	r.background(ctx, func(ctx context.Context) {
		if _, err := r.remote.DeleteAssessment(ctx, id); err != nil {
			r.logger.WarnContext(ctx, "remote delete failed; server copy left in place", slog.String("error", err.Error()))
			return
		}
		r.logger.DebugContext(ctx, "remote delete confirmed")
	})
	return found, nil
}

// Flush pushes the pending records in bounded batches, in order. Pending
// ids with no local record are dropped first. Each batch's ids leave the
// PendingSet only once the server accepts that batch; the first failure
// stops the flush, keeps the rest pending and marks the agent offline. The
// returned result sums the accepted batches.
func (r *Reconciler) Flush(ctx context.Context) (schema.PushResult, error) {
	records, orphans, err := r.local.PendingRecords(ctx)
	if err != nil {
		return schema.PushResult{}, err
	}
	if len(orphans) > 0 {
		remaining, err := r.local.ClearPending(ctx, orphans)
		if err != nil {
			return schema.PushResult{}, err
		}
		r.metrics.SetPending(remaining)
	}
	if len(records) == 0 {
		return schema.PushResult{}, nil
	}

	batches, err := splitBatches(records, r.maxBatchRecords, r.maxBatchBytes)
	if err != nil {
		return schema.PushResult{}, err
	}

	var (
		total     schema.PushResult
		remaining int
	)
	for i, batch := range batches {
		res, err := r.remote.PushBatch(ctx, batch)
		if err != nil {
			pending := r.pendingCount(ctx)
			r.setStatus(ctx, schema.StatusOffline)
			r.metrics.ObserveFlush(false, pending)
			r.logger.WarnContext(ctx, "sync push failed; records stay pending",
				slog.Int("batch", i+1), slog.Int("batches", len(batches)),
				slog.Int("pending", pending), slog.String("error", err.Error()))
			r.publish(ctx, streaming.SyncEvent{Type: schema.EventFlushFailed, Pending: pending, Error: err.Error()})
			return total, err
		}
		total.Inserted += res.Inserted
		total.Skipped += res.Skipped
		total.Total += res.Total

		remaining, err = r.local.ClearPending(ctx, idsOf(batch))
		if err != nil {
			return total, err
		}
		r.metrics.SetPending(remaining)
	}

	r.setStatus(ctx, schema.StatusOnline)
	r.metrics.ObserveFlush(true, remaining)
	r.logger.InfoContext(ctx, "sync push complete",
		slog.Int("batches", len(batches)), slog.Int("inserted", total.Inserted),
		slog.Int("skipped", total.Skipped), slog.Int("pending", remaining))
	r.publish(ctx, streaming.SyncEvent{Type: schema.EventFlushed, Pending: remaining, Result: &total})
	return total, nil
}

// CheckConnectivity asks the server for its status. Any failure counts as
// offline. The offline to online transition flushes the PendingSet.
func (r *Reconciler) CheckConnectivity(ctx context.Context) schema.ConnectivityStatus {
	status, err := r.remote.Status(ctx)
	if err != nil {
		status = schema.StatusOffline
	}
	if prev := r.setStatus(ctx, status); prev == schema.StatusOffline && status == schema.StatusOnline {
		if _, err := r.Flush(ctx); err != nil {
			r.logger.DebugContext(ctx, "reconnect flush failed", slog.String("error", err.Error()))
		}
	}
	return status
}

// Poll is the periodic job: refresh connectivity, then flush whatever is
// still pending.
func (r *Reconciler) Poll(ctx context.Context) {
	r.CheckConnectivity(ctx)
	if _, err := r.Flush(ctx); err != nil {
		r.logger.DebugContext(ctx, "poll flush failed", slog.String("error", err.Error()))
	}
}

// Status returns the last observed connectivity.
func (r *Reconciler) Status() schema.ConnectivityStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// PendingCount returns the size of the PendingSet.
func (r *Reconciler) PendingCount(ctx context.Context) (int, error) {
	pending, err := r.local.Pending(ctx)
	return len(pending), err
}

// Records returns the local record set.
func (r *Reconciler) Records(ctx context.Context) ([]schema.Assessment, error) {
	return r.local.Records(ctx)
}

// Wait blocks until background pushes and deletes have finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// setStatus records status and returns the previous value.
func (r *Reconciler) setStatus(ctx context.Context, status schema.ConnectivityStatus) schema.ConnectivityStatus {
	r.mu.Lock()
	prev := r.status
	r.status = status
	r.mu.Unlock()

	if prev != status {
		r.metrics.SetOnline(status == schema.StatusOnline)
		r.logger.InfoContext(ctx, "connectivity changed", slog.String("from", string(prev)), slog.String("to", string(status)))
		r.publish(ctx, streaming.SyncEvent{Type: schema.EventStatusChanged, Status: status, Pending: r.pendingCount(ctx)})
	}
	return prev
}

func (r *Reconciler) background(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(ctx)
	}()
}

func (r *Reconciler) pendingCount(ctx context.Context) int {
	n, err := r.PendingCount(ctx)
	if err != nil {
		return -1
	}
	return n
}

func (r *Reconciler) publish(ctx context.Context, ev streaming.SyncEvent) {
	if r.hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	if ev.Status == "" {
		ev.Status = r.Status()
	}
	if err := r.hub.Publish(ctx, ev); err != nil {
		r.logger.DebugContext(ctx, "event publish failed", slog.String("error", err.Error()))
	}
}

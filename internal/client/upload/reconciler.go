package upload

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dpetrenko/filekeeper/internal/client/models"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

// Reconciler periodically re-derives manager state from the registry:
// it resumes rehydrated records, retries pending backend acks, reclassifies
// transfers that stopped reporting progress and sweeps orphaned blobs.
type Reconciler struct {
	m        *Manager
	interval time.Duration
	grace    time.Duration
	logger   logging.Logger
	kick     chan struct{}
}

func NewReconciler(m *Manager, interval, grace time.Duration, logger logging.Logger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if grace <= 0 {
		grace = 30 * time.Second
	}
	return &Reconciler{
		m:        m,
		interval: interval,
		grace:    grace,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate pass, the analogue of reconciling on
// page-visibility-regain. Safe to call from any goroutine.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run blocks, reconciling every interval and on every Kick, until ctx is
// done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile(ctx)
		case <-r.kick:
			r.reconcile(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {

	for _, rec := range r.m.GetAll() {
		switch {
		case rec.AwaitingAck:
			r.retryAck(ctx, rec.ID)

		case rec.Status == models.StatusUploading && rec.NeedsResume:
			r.autoResume(ctx, rec)

		case rec.Status == models.StatusFailed && rec.FailReason != models.ReasonBlobMissing:
			r.autoResume(ctx, rec)

		case rec.Status == models.StatusUploading:
			r.checkStale(ctx, rec)
		}
	}

	r.sweepOrphans(ctx)
}

// autoResume spends one unit of the record's automatic budget; past the
// budget the record is left for the user.
func (r *Reconciler) autoResume(ctx context.Context, rec *models.UploadRecord) {
	if rec.ResumeCount >= r.m.cfg.AutoResumeLimit {
		return
	}
	r.logger.Info(ctx, "auto-resuming upload", "id", rec.ID, "file", rec.FileName, "attempt", rec.ResumeCount+1)
	if err := r.m.resume(ctx, rec.ID, true); err != nil {
		r.logger.Warn(ctx, "auto-resume failed", "id", rec.ID, "error", err)
	}
}

// retryAck re-runs the backend finalize call with exponential backoff,
// bounded so one stuck record cannot stall the whole pass.
func (r *Reconciler) retryAck(ctx context.Context, id string) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	err := backoff.Retry(func() error {
		return r.m.CompleteBackendAck(ctx, id)
	}, bo)
	if err != nil {
		r.logger.Warn(ctx, "backend ack still pending", "id", id, "error", err)
	}
}

// checkStale reclassifies an uploading record to failed when its transfer
// stopped reporting progress past the grace window, or when no live
// transfer exists at all, instead of hanging in uploading forever.
func (r *Reconciler) checkStale(ctx context.Context, rec *models.UploadRecord) {
	h := r.m.liveHandle(rec.ID)

	if h == nil {
		if r.m.now().Sub(rec.UpdatedAt) > r.grace {
			r.logger.Warn(ctx, "uploading record has no live transfer", "id", rec.ID)
			r.m.markFailed(ctx, rec.ID, models.ReasonNetworkError, 0)
		}
		return
	}

	if r.m.now().Sub(h.lastActivity()) > r.grace {
		r.logger.Warn(ctx, "transfer stalled, aborting", "id", rec.ID)
		h.setIntent(intentStale)
		h.cancel()
	}
}

// sweepOrphans deletes blobs whose owning record no longer exists. A blob
// must never outlive its record by more than a reconciliation interval.
func (r *Reconciler) sweepOrphans(ctx context.Context) {
	ids, err := r.m.store.List(ctx)
	if err != nil {
		r.logger.Warn(ctx, "orphan sweep: list failed", "error", err)
		return
	}

	for _, id := range ids {
		if _, err := r.m.reg.Get(id); err == nil {
			continue
		}
		if err := r.m.store.Delete(ctx, id); err != nil {
			r.logger.Warn(ctx, "orphan sweep: delete failed", "id", id, "error", err)
			continue
		}
		r.logger.Info(ctx, "orphan blob removed", "id", id)
	}
}

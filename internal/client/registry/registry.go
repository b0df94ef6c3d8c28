// Package registry is the single source of truth for what uploads exist.
// It keeps the canonical record set in memory and writes through to a
// Repository so the set survives a process restart.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dpetrenko/filekeeper/internal/client/models"
	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

// persistProgressStep bounds write amplification under rapid progress
// updates: progress-only changes are persisted every this-many percent.
const persistProgressStep = 5.0

// Meta is the immutable part of an upload record, captured at initiation.
type Meta struct {
	ID            string
	FileName      string
	FileSizeBytes int64
	ContentType   string
	TargetURL     string
	ParentDirID   string
}

type Registry struct {
	mu        sync.RWMutex
	records   map[string]*models.UploadRecord
	persisted map[string]float64 // last persisted progress per id

	repo   Repository
	logger logging.Logger
	now    func() time.Time
}

// New builds a registry hydrated from repo. Any record persisted while a
// transfer was in flight (initiated, uploading or resuming) rehydrates as
// uploading with NeedsResume set; that flag is what the reconciliation
// loop acts on. Terminal leftovers are cleaned out.
func New(ctx context.Context, repo Repository, logger logging.Logger) (*Registry, error) {
	r := &Registry{
		records:   make(map[string]*models.UploadRecord),
		persisted: make(map[string]float64),
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}

	recs, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate registry: %w", err)
	}

	kept := make([]*models.UploadRecord, 0, len(recs))
	for _, rec := range recs {
		switch rec.Status {
		case models.StatusInitiated, models.StatusUploading, models.StatusResuming:
			rec.Status = models.StatusUploading
			rec.NeedsResume = true
		case models.StatusCompleted, models.StatusCancelled:
			// terminal records are removed on completion; a leftover means
			// the delete itself was interrupted
			logger.Warn(ctx, "dropping leftover terminal record", "id", rec.ID, "status", rec.Status)
			continue
		}
		kept = append(kept, rec)
		r.records[rec.ID] = rec
		r.persisted[rec.ID] = rec.ProgressPercent
	}

	// commit the rewrite (and the terminal cleanup) in one transaction
	if err := repo.ReplaceAll(ctx, kept); err != nil {
		return nil, fmt.Errorf("persist hydration rewrite: %w", err)
	}

	return r, nil
}

// Create registers a new upload with StatusInitiated and persists it.
func (r *Registry) Create(ctx context.Context, meta Meta) (*models.UploadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[meta.ID]; ok {
		return nil, fmt.Errorf("upload %s: already registered", meta.ID)
	}

	rec := &models.UploadRecord{
		ID:            meta.ID,
		FileName:      meta.FileName,
		FileSizeBytes: meta.FileSizeBytes,
		ContentType:   meta.ContentType,
		TargetURL:     meta.TargetURL,
		ParentDirID:   meta.ParentDirID,
		Status:        models.StatusInitiated,
		UpdatedAt:     r.now(),
	}

	if err := r.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist new upload: %w", err)
	}

	r.records[rec.ID] = rec
	r.persisted[rec.ID] = 0
	return rec.Clone(), nil
}

// Get returns a copy of the record, or common.ErrNotFound.
func (r *Registry) Get(id string) (*models.UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns copies of all records, oldest update first.
func (r *Registry) List() []*models.UploadRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.UploadRecord, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result
}

// Update applies mutate to a copy of the record and commits it if the
// resulting status change is legal. Progress is clamped monotonic
// non-decreasing while the status stays uploading. Only status or flag
// changes are persisted unconditionally; progress-only changes are
// coalesced.
func (r *Registry) Update(ctx context.Context, id string, mutate func(*models.UploadRecord)) (*models.UploadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}

	next := old.Clone()
	mutate(next)

	if next.Status != old.Status && !models.CanTransition(old.Status, next.Status) {
		return nil, fmt.Errorf("upload %s: %s -> %s: %w", id, old.Status, next.Status, common.ErrIllegalTransition)
	}

	if next.Status == models.StatusUploading && old.Status == models.StatusUploading &&
		next.ProgressPercent < old.ProgressPercent {
		next.ProgressPercent = old.ProgressPercent
	}
	next.UpdatedAt = r.now()

	r.records[id] = next

	if r.shouldPersist(old, next) {
		if err := r.repo.Upsert(ctx, next); err != nil {
			// the in-memory record stays authoritative; persistence catches
			// up on the next write
			r.logger.Warn(ctx, "write-through failed", "id", id, "error", err)
		} else {
			r.persisted[id] = next.ProgressPercent
		}
	}

	return next.Clone(), nil
}

func (r *Registry) shouldPersist(old, next *models.UploadRecord) bool {
	if next.Status != old.Status ||
		next.NeedsResume != old.NeedsResume ||
		next.AwaitingAck != old.AwaitingAck ||
		next.FailReason != old.FailReason ||
		next.ResumeCount != old.ResumeCount {
		return true
	}
	if next.ProgressPercent >= 100 {
		return true
	}
	return next.ProgressPercent-r.persisted[next.ID] >= persistProgressStep
}

// Remove drops the record from memory and persistence.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return common.ErrNotFound
	}

	if err := r.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete persisted upload: %w", err)
	}

	delete(r.records, id)
	delete(r.persisted, id)
	return nil
}

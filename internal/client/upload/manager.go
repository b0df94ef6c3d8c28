// Package upload orchestrates resumable file uploads: it owns the upload
// registry, delegates byte transfer to the engine, delegates persistence
// to the blob store and notifies observers through the event bus. All
// record status mutation goes through the manager; the engine never
// touches records directly.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dpetrenko/filekeeper/internal/client/api"
	"github.com/dpetrenko/filekeeper/internal/client/blobstore"
	"github.com/dpetrenko/filekeeper/internal/client/models"
	"github.com/dpetrenko/filekeeper/internal/client/registry"
	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

// abort intents distinguish why a live transfer's context was cancelled,
// so the transfer goroutine can apply the right terminal state.
type abortIntent int

const (
	intentNone abortIntent = iota // process shutdown; record rehydrates later
	intentPause
	intentCancel
	intentStale
)

type handle struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	intent   abortIntent
	lastTick time.Time
}

func (h *handle) setIntent(i abortIntent) {
	h.mu.Lock()
	h.intent = i
	h.mu.Unlock()
}

func (h *handle) getIntent() abortIntent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.intent
}

func (h *handle) touch(t time.Time) {
	h.mu.Lock()
	h.lastTick = t
	h.mu.Unlock()
}

func (h *handle) lastActivity() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastTick
}

// Config carries the manager's tunables.
type Config struct {
	// MaxFileSizeBytes caps what Initiate accepts; the blob store holds the
	// entire file, so unbounded sizes are refused up front.
	MaxFileSizeBytes int64

	// AutoResumeLimit is how many automatic resume attempts the
	// reconciliation loop spends on a record before requiring manual action.
	AutoResumeLimit int
}

// Manager is the public façade of the upload subsystem. Construct one per
// process with NewManager and share it; tests can build isolated instances.
type Manager struct {
	store  blobstore.Store
	reg    *registry.Registry
	api    api.Client
	bus    *Bus
	engine *Engine
	logger logging.Logger
	cfg    Config
	now    func() time.Time

	mu      sync.Mutex
	handles map[string]*handle

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup
}

func NewManager(store blobstore.Store, reg *registry.Registry, apiClient api.Client,
	bus *Bus, engine *Engine, logger logging.Logger, cfg Config) *Manager {

	if cfg.AutoResumeLimit <= 0 {
		cfg.AutoResumeLimit = 1
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &Manager{
		store:     store,
		reg:       reg,
		api:       apiClient,
		bus:       bus,
		engine:    engine,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		handles:   make(map[string]*handle),
		baseCtx:   baseCtx,
		cancelAll: cancel,
	}
}

// Events exposes the bus for observers (the CLI, tests).
func (m *Manager) Events() *Bus { return m.bus }

// GetAll returns a snapshot of all upload records for rendering.
func (m *Manager) GetAll() []*models.UploadRecord { return m.reg.List() }

// Get returns a snapshot of one record.
func (m *Manager) Get(id string) (*models.UploadRecord, error) { return m.reg.Get(id) }

// Initiate registers path for upload into parentDirID and starts the
// transfer. The file bytes are persisted to the blob store before any
// network byte is sent, so a reload right after initiation loses nothing.
// Returns common.ErrBackendUnavailable when the presigned-URL request
// fails, and common.ErrStorageFull / common.ErrStorageUnavailable when the
// local store does.
func (m *Manager) Initiate(ctx context.Context, path string, parentDirID string) (*models.UploadRecord, error) {

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if m.cfg.MaxFileSizeBytes > 0 && info.Size() > m.cfg.MaxFileSizeBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), common.ErrFileTooLarge)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := m.api.InitiateUpload(ctx, api.InitiateRequest{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ParentDirID: parentDirID,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := m.store.Put(ctx, res.FileID, f); err != nil {
		return nil, err
	}

	rec, err := m.reg.Create(ctx, registry.Meta{
		ID:            res.FileID,
		FileName:      filepath.Base(path),
		FileSizeBytes: info.Size(),
		ContentType:   contentType,
		TargetURL:     res.URL,
		ParentDirID:   parentDirID,
	})
	if err != nil {
		// keep the blob out of orphan territory
		if derr := m.store.Delete(ctx, res.FileID); derr != nil {
			m.logger.Warn(ctx, "failed to delete blob after registry error", "id", res.FileID, "error", derr)
		}
		return nil, err
	}

	m.bus.Publish(Event{Type: EventCreated, ID: rec.ID, Status: rec.Status})

	if err := m.startTransfer(ctx, rec.ID); err != nil {
		return rec, err
	}
	return rec, nil
}

// startTransfer attaches a live transfer to the record and launches the
// engine. Exactly one live transfer may exist per record.
func (m *Manager) startTransfer(ctx context.Context, id string) error {

	m.mu.Lock()
	if _, ok := m.handles[id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("upload %s: %w", id, common.ErrTransferActive)
	}
	tctx, cancel := context.WithCancel(m.baseCtx)
	h := &handle{cancel: cancel, lastTick: m.now()}
	m.handles[id] = h
	m.mu.Unlock()

	rec, err := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
		r.Status = models.StatusUploading
		r.NeedsResume = false
		r.ProgressPercent = 0
		if r.StartedAt.IsZero() {
			r.StartedAt = m.now()
		}
	})
	if err != nil {
		m.dropHandle(id)
		cancel()
		return err
	}
	m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: rec.Status})

	body, size, err := m.store.Get(ctx, id)
	if err != nil {
		m.dropHandle(id)
		cancel()
		m.markFailed(ctx, id, models.ReasonBlobMissing, 0)
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer body.Close()
		defer cancel()

		err := m.engine.Start(tctx, rec.TargetURL, rec.ContentType, body, size, func(pct float64) {
			h.touch(m.now())
			m.reportProgress(id, pct)
		})

		intent := h.getIntent()
		m.dropHandle(id)
		m.finishTransfer(id, err, intent)
	}()

	return nil
}

func (m *Manager) dropHandle(id string) {
	m.mu.Lock()
	delete(m.handles, id)
	m.mu.Unlock()
}

func (m *Manager) liveHandle(id string) *handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[id]
}

func (m *Manager) reportProgress(id string, pct float64) {
	rec, err := m.reg.Update(context.Background(), id, func(r *models.UploadRecord) {
		if r.Status == models.StatusUploading {
			r.ProgressPercent = pct
		}
	})
	if err != nil {
		return // record gone; late tick after cancel
	}
	m.bus.Publish(Event{Type: EventProgress, ID: id, Percent: rec.ProgressPercent})
}

// finishTransfer translates the engine outcome into record state. A late
// outcome for a record that has already been cancelled and removed is a
// no-op because the registry no longer knows the id.
func (m *Manager) finishTransfer(id string, err error, intent abortIntent) {
	ctx := context.Background()

	switch {
	case err == nil:
		rec, uerr := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
			r.ProgressPercent = 100
			r.AwaitingAck = true
		})
		if uerr != nil {
			return
		}
		m.bus.Publish(Event{Type: EventProgress, ID: id, Percent: rec.ProgressPercent})

		if aerr := m.CompleteBackendAck(ctx, id); aerr != nil {
			m.logger.Warn(ctx, "backend ack failed, will retry", "id", id, "error", aerr)
		}

	case errors.Is(err, context.Canceled):
		switch intent {
		case intentPause:
			rec, uerr := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
				r.Status = models.StatusPaused
			})
			if uerr != nil {
				return
			}
			m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: rec.Status})
		case intentStale:
			m.markFailed(ctx, id, models.ReasonNetworkError, 0)
		case intentCancel, intentNone:
			// cancel already cleaned up; shutdown leaves the record to
			// rehydrate with NeedsResume on the next start
		}

	default:
		var rejected *common.ServerRejectedError
		if errors.As(err, &rejected) {
			m.markFailed(ctx, id, models.ReasonServerRejected, rejected.StatusCode)
		} else {
			m.markFailed(ctx, id, models.ReasonNetworkError, 0)
		}
	}
}

func (m *Manager) markFailed(ctx context.Context, id string, reason models.FailReason, rejectStatus int) {
	rec, err := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
		r.Status = models.StatusFailed
		r.FailReason = reason
		r.RejectStatus = rejectStatus
		r.NeedsResume = false
	})
	if err != nil {
		return
	}
	m.logger.Warn(ctx, "upload failed", "id", id, "reason", reason, "status", rejectStatus)
	m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: rec.Status})
}

// CompleteBackendAck runs the backend finalize call for a record whose
// transport already succeeded. Only after the ack lands does the record
// complete and its blob get purged; until then the reconciliation loop
// keeps retrying.
func (m *Manager) CompleteBackendAck(ctx context.Context, id string) error {

	rec, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if !rec.AwaitingAck {
		return fmt.Errorf("upload %s: transport not finished", id)
	}

	if err := m.api.CompleteUpload(ctx, id); err != nil {
		return err
	}

	if _, err := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
		r.Status = models.StatusCompleted
		r.AwaitingAck = false
	}); err != nil {
		return err
	}
	m.bus.Publish(Event{Type: EventCompleted, ID: id})

	if err := m.store.Delete(ctx, id); err != nil {
		// the orphan sweep will retry
		m.logger.Warn(ctx, "failed to delete blob after completion", "id", id, "error", err)
	}
	if err := m.reg.Remove(ctx, id); err != nil {
		m.logger.Warn(ctx, "failed to remove completed record", "id", id, "error", err)
	}
	m.bus.Publish(Event{Type: EventRemoved, ID: id})

	m.logger.Info(ctx, "upload completed", "id", id, "file", rec.FileName)
	return nil
}

// Pause aborts the live transfer but keeps the record and blob so the
// upload can be resumed later.
func (m *Manager) Pause(ctx context.Context, id string) error {

	rec, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusUploading {
		return fmt.Errorf("upload %s is %s: %w", id, rec.Status, common.ErrIllegalTransition)
	}

	h := m.liveHandle(id)
	if h == nil {
		// no live transfer to stop; just record the pause
		rec, err = m.reg.Update(ctx, id, func(r *models.UploadRecord) {
			r.Status = models.StatusPaused
			r.NeedsResume = false
		})
		if err != nil {
			return err
		}
		m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: rec.Status})
		return nil
	}

	h.setIntent(intentPause)
	h.cancel()
	return nil
}

// Cancel aborts any live transfer, deletes the persisted blob and removes
// the record. Calling it twice, or on an unknown id, is a no-op. If the
// transport has already succeeded the cancel loses the race deliberately:
// success-before-cancel wins and the upload completes.
func (m *Manager) Cancel(ctx context.Context, id string) error {

	rec, err := m.reg.Get(id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.Status.Terminal() {
		return nil
	}
	if rec.AwaitingAck {
		m.logger.Info(ctx, "cancel ignored: transport already succeeded", "id", id)
		return nil
	}

	if h := m.liveHandle(id); h != nil {
		h.setIntent(intentCancel)
		h.cancel()
	}

	if _, err := m.reg.Update(ctx, id, func(r *models.UploadRecord) {
		r.Status = models.StatusCancelled
	}); err != nil {
		return err
	}
	m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: models.StatusCancelled})

	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Warn(ctx, "failed to delete blob on cancel", "id", id, "error", err)
	}
	if err := m.reg.Remove(ctx, id); err != nil {
		return err
	}
	m.bus.Publish(Event{Type: EventRemoved, ID: id})

	m.logger.Info(ctx, "upload cancelled", "id", id, "file", rec.FileName)
	return nil
}

// Resume restarts a paused, failed or rehydrated upload by reopening a
// transport against the same stored target URL and retransmitting the
// whole file from the blob store. A missing blob marks the record failed
// with ReasonBlobMissing permanently; the caller is only told through the
// record state, matching the original behavior.
func (m *Manager) Resume(ctx context.Context, id string) error {
	return m.resume(ctx, id, false)
}

func (m *Manager) resume(ctx context.Context, id string, auto bool) error {

	rec, err := m.reg.Get(id)
	if err != nil {
		return err
	}

	resumable := rec.Status == models.StatusPaused ||
		(rec.Status == models.StatusFailed && rec.FailReason != models.ReasonBlobMissing) ||
		(rec.Status == models.StatusUploading && rec.NeedsResume)
	if !resumable {
		return fmt.Errorf("upload %s is %s: %w", id, rec.Status, common.ErrIllegalTransition)
	}
	if m.liveHandle(id) != nil {
		return fmt.Errorf("upload %s: %w", id, common.ErrTransferActive)
	}

	rec, err = m.reg.Update(ctx, id, func(r *models.UploadRecord) {
		r.Status = models.StatusResuming
		r.NeedsResume = false
		if auto {
			r.ResumeCount++
		} else {
			r.ResumeCount = 0 // manual action resets the automatic budget
		}
	})
	if err != nil {
		return err
	}
	m.bus.Publish(Event{Type: EventStateChange, ID: id, Status: rec.Status})

	// verify the bytes survived before opening a transport
	probe, _, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			m.logger.Error(ctx, "blob missing, upload unrecoverable", "id", id, "file", rec.FileName)
			m.markFailed(ctx, id, models.ReasonBlobMissing, 0)
			return nil
		}
		m.markFailed(ctx, id, models.ReasonNetworkError, 0)
		return err
	}
	probe.Close()

	return m.startTransfer(ctx, id)
}

// Close aborts all live transfers and waits for their goroutines. Records
// stay persisted as uploading and rehydrate with NeedsResume on the next
// start.
func (m *Manager) Close() {
	m.cancelAll()
	m.wg.Wait()
}

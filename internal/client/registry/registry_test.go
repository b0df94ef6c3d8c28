package registry

import (
	"context"
	"testing"

	"github.com/dpetrenko/filekeeper/internal/client/models"
	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *SQLiteRepository) {
	t.Helper()
	repo := NewSQLiteRepository(setupDB(t))
	r, err := New(context.Background(), repo, logging.Nop{})
	require.NoError(t, err)
	return r, repo
}

func meta(id string) Meta {
	return Meta{
		ID:            id,
		FileName:      "report.pdf",
		FileSizeBytes: 2_000_000,
		ContentType:   "application/pdf",
		TargetURL:     "https://x/presigned",
		ParentDirID:   "dirX",
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r, repo := newRegistry(t)
	ctx := context.Background()

	rec, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, rec.Status)
	assert.Equal(t, 0.0, rec.ProgressPercent)

	got, err := r.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.FileName)

	// write-through happened
	persisted, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, persisted.Status)

	_, err = r.Create(ctx, meta("f1"))
	require.Error(t, err)
}

func TestRegistry_GetMissing(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Get("nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRegistry_UpdateEnforcesTransitions(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)

	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) {
		rec.Status = models.StatusCompleted // initiated -> completed is illegal
	})
	require.ErrorIs(t, err, common.ErrIllegalTransition)

	// rejected update must not stick
	got, err := r.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, got.Status)

	rec, err := r.Update(ctx, "f1", func(rec *models.UploadRecord) {
		rec.Status = models.StatusUploading
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploading, rec.Status)
}

func TestRegistry_ProgressClampedMonotonic(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.Status = models.StatusUploading })
	require.NoError(t, err)

	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.ProgressPercent = 60 })
	require.NoError(t, err)

	// a late, out-of-order progress callback must not move the bar backwards
	rec, err := r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.ProgressPercent = 40 })
	require.NoError(t, err)
	assert.Equal(t, 60.0, rec.ProgressPercent)
}

func TestRegistry_ProgressResetsOnResume(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	for _, mutate := range []func(*models.UploadRecord){
		func(rec *models.UploadRecord) { rec.Status = models.StatusUploading },
		func(rec *models.UploadRecord) { rec.ProgressPercent = 80 },
		func(rec *models.UploadRecord) { rec.Status = models.StatusFailed; rec.FailReason = models.ReasonNetworkError },
		func(rec *models.UploadRecord) { rec.Status = models.StatusResuming },
	} {
		_, err = r.Update(ctx, "f1", mutate)
		require.NoError(t, err)
	}

	// the whole file is retransmitted, so progress starts over
	rec, err := r.Update(ctx, "f1", func(rec *models.UploadRecord) {
		rec.Status = models.StatusUploading
		rec.ProgressPercent = 0
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.ProgressPercent)
}

func TestRegistry_ProgressWritesCoalesced(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	r, err := New(ctx, repo, logging.Nop{})
	require.NoError(t, err)

	_, err = r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.Status = models.StatusUploading })
	require.NoError(t, err)

	// +2% is below the persistence step: memory moves, disk does not
	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.ProgressPercent = 2 })
	require.NoError(t, err)
	persisted, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, persisted.ProgressPercent)

	// crossing the step persists
	_, err = r.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.ProgressPercent = 7 })
	require.NoError(t, err)
	persisted, err = repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, persisted.ProgressPercent)
}

func TestRegistry_HydrationRoundTrip(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	r1, err := New(ctx, repo, logging.Nop{})
	require.NoError(t, err)
	_, err = r1.Create(ctx, meta("f1"))
	require.NoError(t, err)
	_, err = r1.Update(ctx, "f1", func(rec *models.UploadRecord) { rec.Status = models.StatusUploading })
	require.NoError(t, err)

	// simulate restart: hydrate a fresh registry from the same repo
	r2, err := New(ctx, repo, logging.Nop{})
	require.NoError(t, err)

	rec, err := r2.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploading, rec.Status)
	assert.True(t, rec.NeedsResume)
	assert.Equal(t, "report.pdf", rec.FileName)
	assert.Equal(t, int64(2_000_000), rec.FileSizeBytes)
	assert.Equal(t, "https://x/presigned", rec.TargetURL)
}

func TestRegistry_HydrationKeepsFailedAsIs(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := sampleRecord()
	rec.Status = models.StatusFailed
	rec.FailReason = models.ReasonNetworkError
	require.NoError(t, repo.Upsert(ctx, rec))

	r, err := New(ctx, repo, logging.Nop{})
	require.NoError(t, err)

	got, err := r.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.False(t, got.NeedsResume)
}

func TestRegistry_Remove(t *testing.T) {
	r, repo := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, "f1"))

	_, err = r.Get("f1")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetByID(ctx, "f1")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, r.Remove(ctx, "f1"), common.ErrNotFound)
}

func TestRegistry_List(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, meta("f1"))
	require.NoError(t, err)
	m2 := meta("f2")
	m2.FileName = "photo.jpg"
	_, err = r.Create(ctx, m2)
	require.NoError(t, err)

	all := r.List()
	require.Len(t, all, 2)

	// mutating the returned copies must not touch the canonical records
	all[0].Status = models.StatusCancelled
	got, err := r.Get(all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, got.Status)
}

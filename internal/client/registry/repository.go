package registry

import (
	"context"

	"github.com/dpetrenko/filekeeper/internal/client/models"
)

// Repository persists the full upload record set. The registry writes
// through to it on every mutation it decides to persist; on construction
// the registry hydrates itself from it.
type Repository interface {
	// Upsert inserts or replaces the persisted form of the record.
	Upsert(ctx context.Context, rec *models.UploadRecord) error

	// GetByID returns the persisted record, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.UploadRecord, error)

	// GetAll returns every persisted record.
	GetAll(ctx context.Context) ([]*models.UploadRecord, error)

	// DeleteByID removes the persisted record. Deleting a missing id is
	// not an error.
	DeleteByID(ctx context.Context, id string) error

	// ReplaceAll atomically replaces the persisted set with recs. Used at
	// hydration to commit the rehydration rewrite in one step.
	ReplaceAll(ctx context.Context, recs []*models.UploadRecord) error
}

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dpetrenko/filekeeper/internal/client/models"
	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func upsertRecord(ctx context.Context, db dbx.DBTX, rec *models.UploadRecord) error {

	query := `INSERT INTO uploads (id, file_name, file_size_bytes, content_type, target_url, parent_dir_id,
				status, fail_reason, reject_status, progress_percent, started_at, awaiting_ack, resume_count, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				fail_reason = excluded.fail_reason,
				reject_status = excluded.reject_status,
				progress_percent = excluded.progress_percent,
				started_at = excluded.started_at,
				awaiting_ack = excluded.awaiting_ack,
				resume_count = excluded.resume_count,
				updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.FileName, rec.FileSizeBytes, rec.ContentType, rec.TargetURL, rec.ParentDirID,
		string(rec.Status), string(rec.FailReason), rec.RejectStatus, rec.ProgressPercent,
		unixOrZero(rec.StartedAt), boolToInt(rec.AwaitingAck), rec.ResumeCount, rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert upload: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.UploadRecord) error {
	return upsertRecord(ctx, r.db, rec)
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, recs []*models.UploadRecord) error {

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `delete from uploads`); err != nil {
			return fmt.Errorf("failed to clear uploads: %w", err)
		}
		for _, rec := range recs {
			if err := upsertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

const selectColumns = `id, file_name, file_size_bytes, content_type, target_url, parent_dir_id,
	status, fail_reason, reject_status, progress_percent, started_at, awaiting_ack, resume_count, updated_at`

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.UploadRecord, error) {

	query := `select ` + selectColumns + ` from uploads where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}

	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.UploadRecord, error) {

	query := `select ` + selectColumns + ` from uploads order by updated_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {

	query := `delete from uploads where id=?`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.UploadRecord, error) {
	rec := &models.UploadRecord{}

	var status, reason string
	var startedAt, updatedAt int64
	var awaitingAck int

	err := row.Scan(&rec.ID, &rec.FileName, &rec.FileSizeBytes, &rec.ContentType, &rec.TargetURL, &rec.ParentDirID,
		&status, &reason, &rec.RejectStatus, &rec.ProgressPercent, &startedAt, &awaitingAck, &rec.ResumeCount, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = models.Status(status)
	rec.FailReason = models.FailReason(reason)
	rec.AwaitingAck = awaitingAck != 0
	if startedAt != 0 {
		rec.StartedAt = time.Unix(0, startedAt)
	}
	rec.UpdatedAt = time.Unix(0, updatedAt)

	return rec, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

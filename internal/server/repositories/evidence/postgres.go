package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/complyvault/evidenced/internal/common"
	"github.com/complyvault/evidenced/internal/dbx"
	"github.com/complyvault/evidenced/internal/server/models"
)

const selectColumns = `id, title, description, evidence_type, source, upload_state,
		file_key, file_size, mime_type, pending_file_key, credential_expires_at,
		collected_at, valid_until, created_at, updated_at`

// PostgresRepository implements evidence storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new evidence record. The caller supplies the id.
func (r *PostgresRepository) Create(ctx context.Context, e *models.Evidence) error {
	query := `
		INSERT INTO evidence (id, title, description, evidence_type, source, upload_state, collected_at, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Type, e.Source, e.UploadState, e.CollectedAt, e.ValidUntil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns a single record or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Evidence, error) {
	query := `SELECT ` + selectColumns + ` FROM evidence WHERE id=$1`

	row := r.db.QueryRowContext(ctx, query, id)
	e, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	return e, nil
}

// List returns records matching the filter, ordered by insertion.
func (r *PostgresRepository) List(ctx context.Context, filter models.EvidenceFilter) ([]*models.Evidence, error) {
	query := `SELECT ` + selectColumns + ` FROM evidence WHERE 1=1`
	var args []any

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND evidence_type = $%d", len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	defer rows.Close()

	var result []*models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveCredential records the most recently issued upload credential for the
// record. Attached records keep their state; anything else becomes
// credential_issued. Exactly one row must be affected.
func (r *PostgresRepository) SaveCredential(ctx context.Context, id, fileKey string, expiresAt time.Time) error {
	query := `
		UPDATE evidence
		SET pending_file_key = $2,
			credential_expires_at = $3,
			upload_state = CASE WHEN upload_state = 'attached' THEN upload_state ELSE 'credential_issued' END,
			updated_at = now()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, fileKey, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Attach writes file metadata and flips the record to attached in one
// statement. The guard on pending_file_key and upload_state makes the
// state-check-then-write a single row update, so a losing concurrent
// confirm sees updated=false instead of silently overwriting.
func (r *PostgresRepository) Attach(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (bool, error) {
	query := `
		UPDATE evidence
		SET file_key = $2,
			file_size = $3,
			mime_type = $4,
			upload_state = 'attached',
			pending_file_key = '',
			credential_expires_at = NULL,
			updated_at = now()
		WHERE id = $1 AND upload_state = 'credential_issued' AND pending_file_key = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, fileKey, fileSize, mimeType)
	if err != nil {
		return false, fmt.Errorf("failed to attach file: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return ra == 1, nil
}

// SelectStalePending returns credential_issued records not touched since
// the cutoff.
func (r *PostgresRepository) SelectStalePending(ctx context.Context, cutoff time.Time) ([]*models.Evidence, error) {
	query := `SELECT ` + selectColumns + ` FROM evidence
		WHERE upload_state = 'credential_issued' AND updated_at < $1
		ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale records: %w", err)
	}
	defer rows.Close()

	var result []*models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvidence(s scanner) (*models.Evidence, error) {
	var e models.Evidence
	var credExpires, validUntil sql.NullTime
	err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Source, &e.UploadState,
		&e.FileKey, &e.FileSize, &e.MimeType, &e.PendingFileKey, &credExpires,
		&e.CollectedAt, &validUntil, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if credExpires.Valid {
		e.CredentialExpiresAt = &credExpires.Time
	}
	if validUntil.Valid {
		e.ValidUntil = &validUntil.Time
	}
	return &e, nil
}

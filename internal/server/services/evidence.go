// Package services contains the upload coordinator: the service that owns
// the three-phase staged-upload protocol (create record, issue write
// credential, confirm) and the read operations built on top of it.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/complyvault/evidenced/internal/common"
	"github.com/complyvault/evidenced/internal/dbx"
	"github.com/complyvault/evidenced/internal/logging"
	sc "github.com/complyvault/evidenced/internal/server/config"
	"github.com/complyvault/evidenced/internal/server/models"
	"github.com/complyvault/evidenced/internal/server/repositories/repomanager"
	"github.com/complyvault/evidenced/internal/server/storage"
	"github.com/complyvault/evidenced/internal/validity"
	"github.com/google/uuid"
)

// EvidenceView is an evidence record annotated with its read-time state:
// the computed validity classification and the derived control-link count.
// Neither annotation is ever persisted.
type EvidenceView struct {
	models.Evidence
	Validity           validity.State
	LinkedControlCount int
}

// CreateEvidenceParams are the caller-supplied fields for a new record.
type CreateEvidenceParams struct {
	Title       string
	Description string
	Type        models.EvidenceType
	Source      models.Source
	CollectedAt *time.Time
	ValidUntil  *time.Time
}

// EvidenceService coordinates the staged-upload protocol. Each operation is
// an independent request/response call: no state is shared in-process
// between phases, which may be separated by arbitrary time and issued by
// different sessions.
type EvidenceService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	gateway storage.Gateway
	config  *sc.Config
	logger  logging.Logger

	// now is a seam for tests.
	now func() time.Time
}

func NewEvidenceService(db *sql.DB, repos repomanager.RepositoryManager, gateway storage.Gateway, config *sc.Config, logger logging.Logger) *EvidenceService {
	return &EvidenceService{
		db:      db,
		repos:   repos,
		gateway: gateway,
		config:  config,
		logger:  logger.With("module", "evidence_service"),
		now:     time.Now,
	}
}

// StorageKey derives the object key for an upload deterministically from
// the evidence id and the client-supplied filename. The id's uniqueness
// makes the key collision-free; only the base name of the filename is kept.
func StorageKey(evidenceID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("evidence/%s/%s", evidenceID, name)
}

// Create inserts a new evidence record in the pending state.
// Returns common.ErrorValidation when required fields are missing or the
// type/source value is unknown.
func (s *EvidenceService) Create(ctx context.Context, p CreateEvidenceParams) (*EvidenceView, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if !models.ValidType(p.Type) {
		return nil, fmt.Errorf("%w: unknown evidence type %q", common.ErrorValidation, p.Type)
	}
	if !models.ValidSource(p.Source) {
		return nil, fmt.Errorf("%w: unknown source %q", common.ErrorValidation, p.Source)
	}

	now := s.now()
	collectedAt := now
	if p.CollectedAt != nil {
		collectedAt = *p.CollectedAt
	}

	e := &models.Evidence{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Source:      p.Source,
		UploadState: models.StatePending,
		CollectedAt: collectedAt,
		ValidUntil:  p.ValidUntil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repos.Evidence(s.db).Create(ctx, e); err != nil {
		return nil, fmt.Errorf("error creating evidence: %w", err)
	}

	s.logger.Info(ctx, "evidence created", "evidence_id", e.ID, "type", e.Type, "source", e.Source)

	return s.view(e, 0), nil
}

// RequestUploadCredential issues a presigned write credential for the
// record. The key is recorded as the most recently issued one; issuing a
// new credential replaces it. Re-issuing for an attached record is allowed
// and does not revoke the existing object.
func (s *EvidenceService) RequestUploadCredential(ctx context.Context, evidenceID, filename, contentType string) (*storage.Credential, error) {
	repo := s.repos.Evidence(s.db)

	e, err := repo.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	key := StorageKey(e.ID, filename)

	cred, err := s.gateway.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	if err := repo.SaveCredential(ctx, e.ID, key, cred.ExpiresAt); err != nil {
		return nil, fmt.Errorf("error saving credential: %w", err)
	}

	s.logger.Info(ctx, "upload credential issued", "evidence_id", e.ID, "file_key", key)

	return cred, nil
}

// ConfirmUpload finalizes the upload: file key, size and mime type are
// written together and the record becomes attached.
//
// The file key must match the most recently issued one, otherwise
// common.ErrorInvalidCredential is returned. Confirming twice with
// identical metadata is a no-op returning the finalized record; differing
// metadata after attachment returns common.ErrorConflict.
//
// The object's actual presence and metadata are NOT verified against the
// storage gateway: caller-reported values are trusted. This is a deliberate
// protocol boundary, not an oversight.
func (s *EvidenceService) ConfirmUpload(ctx context.Context, evidenceID, fileKey string, fileSize int64, mimeType string) (*EvidenceView, error) {
	if fileKey == "" {
		return nil, fmt.Errorf("%w: file key is required", common.ErrorValidation)
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("%w: negative file size", common.ErrorValidation)
	}

	var result *models.Evidence

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Evidence(tx)

		e, err := repo.GetByID(ctx, evidenceID)
		if err != nil {
			return err
		}

		if e.Attached() {
			if e.FileKey == fileKey && e.FileSize == fileSize && e.MimeType == mimeType {
				// Repeated confirm with identical metadata is idempotent.
				result = e
				return nil
			}
			return common.ErrorConflict
		}

		if e.PendingFileKey == "" || e.PendingFileKey != fileKey {
			return common.ErrorInvalidCredential
		}

		updated, err := repo.Attach(ctx, e.ID, fileKey, fileSize, mimeType)
		if err != nil {
			return fmt.Errorf("error attaching file: %w", err)
		}
		if !updated {
			// The row changed between the read and the guarded write.
			// Re-read to classify the outcome for this caller.
			e2, err := repo.GetByID(ctx, evidenceID)
			if err != nil {
				return err
			}
			if e2.Attached() {
				if e2.FileKey == fileKey && e2.FileSize == fileSize && e2.MimeType == mimeType {
					result = e2
					return nil
				}
				return common.ErrorConflict
			}
			return common.ErrorInvalidCredential
		}

		result, err = repo.GetByID(ctx, evidenceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "upload confirmed", "evidence_id", evidenceID, "file_key", fileKey, "file_size", fileSize)

	links, err := s.repos.ControlLinks(s.db).CountActive(ctx, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("error counting control links: %w", err)
	}

	return s.view(result, links), nil
}

// RequestDownloadCredential issues a presigned read credential for the
// record's backing object. Returns common.ErrorNotAttached when no upload
// has been confirmed yet.
func (s *EvidenceService) RequestDownloadCredential(ctx context.Context, evidenceID string) (*storage.Credential, error) {
	e, err := s.repos.Evidence(s.db).GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	if !e.Attached() {
		return nil, common.ErrorNotAttached
	}

	return s.gateway.PresignGet(ctx, e.FileKey)
}

// Get returns a single annotated record.
func (s *EvidenceService) Get(ctx context.Context, evidenceID string) (*EvidenceView, error) {
	e, err := s.repos.Evidence(s.db).GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	links, err := s.repos.ControlLinks(s.db).CountActive(ctx, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("error counting control links: %w", err)
	}

	return s.view(e, links), nil
}

// List returns records matching the filter, each annotated with validity
// and control-link count, in stable insertion order.
func (s *EvidenceService) List(ctx context.Context, filter models.EvidenceFilter) ([]*EvidenceView, error) {
	records, err := s.repos.Evidence(s.db).List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing evidence: %w", err)
	}

	counts, err := s.repos.ControlLinks(s.db).CountActiveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting control links: %w", err)
	}

	views := make([]*EvidenceView, 0, len(records))
	for _, e := range records {
		views = append(views, s.view(e, counts[e.ID]))
	}
	return views, nil
}

func (s *EvidenceService) view(e *models.Evidence, links int) *EvidenceView {
	return &EvidenceView{
		Evidence:           *e,
		Validity:           validity.Evaluate(s.now(), e.ValidUntil),
		LinkedControlCount: links,
	}
}

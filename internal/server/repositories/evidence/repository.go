package evidence

import (
	"context"
	"time"

	"github.com/complyvault/evidenced/internal/server/models"
)

// Repository persists evidence records and their upload-protocol state.
type Repository interface {
	// Create inserts a new record in the pending state.
	Create(ctx context.Context, e *models.Evidence) error

	// GetByID returns the record or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Evidence, error)

	// List returns records matching the filter in stable insertion order.
	List(ctx context.Context, filter models.EvidenceFilter) ([]*models.Evidence, error)

	// SaveCredential records the most recently issued upload credential.
	// A pending record moves to credential_issued; an attached record keeps
	// its state but the pending key is still replaced.
	SaveCredential(ctx context.Context, id, fileKey string, expiresAt time.Time) error

	// Attach finalizes the record: file key, size and mime type are written
	// together and the state becomes attached. The update is conditional on
	// the row still holding fileKey as its pending key in credential_issued
	// state; Attach reports false when the guard did not match.
	Attach(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (bool, error)

	// SelectStalePending returns credential_issued records whose last
	// transition happened before the cutoff. Used by the orphan sweep.
	SelectStalePending(ctx context.Context, cutoff time.Time) ([]*models.Evidence, error)
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/complyvault/evidenced/internal/dbx"
	"github.com/complyvault/evidenced/internal/server/repositories/controllinks"
	"github.com/complyvault/evidenced/internal/server/repositories/evidence"
)

// RepositoryManager vends repositories bound to a DBTX (a *sql.DB for
// standalone calls or a *sql.Tx inside dbx.WithTx) and exposes a schema
// migration hook.
type RepositoryManager interface {
	Evidence(db dbx.DBTX) evidence.Repository
	ControlLinks(db dbx.DBTX) controllinks.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}

package controllinks

import (
	"context"
	"fmt"

	"github.com/complyvault/evidenced/internal/dbx"
)

// PostgresRepository implements control-link reads over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CountActive returns the number of active links for one evidence record.
func (r *PostgresRepository) CountActive(ctx context.Context, evidenceID string) (int, error) {
	query := `SELECT COUNT(*) FROM evidence_control_links WHERE evidence_id = $1 AND active`

	var n int
	if err := r.db.QueryRowContext(ctx, query, evidenceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count control links: %w", err)
	}
	return n, nil
}

// CountActiveAll returns active link counts grouped by evidence id.
func (r *PostgresRepository) CountActiveAll(ctx context.Context) (map[string]int, error) {
	query := `SELECT evidence_id, COUNT(*) FROM evidence_control_links WHERE active GROUP BY evidence_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count control links: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		result[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

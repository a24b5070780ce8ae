package controllinks

import "context"

// Repository reads control-link relationships for evidence records. The
// link lifecycle is owned by another subsystem; only counts are read here.
type Repository interface {
	// CountActive returns the number of active control links for one record.
	CountActive(ctx context.Context, evidenceID string) (int, error)

	// CountActiveAll returns active link counts keyed by evidence id.
	// Records with no links are absent from the map.
	CountActiveAll(ctx context.Context) (map[string]int, error)
}

package services

import (
	"context"
	"fmt"

	"github.com/complyvault/evidenced/internal/server/models"
	"github.com/complyvault/evidenced/internal/validity"
)

// EvidenceStats are aggregate counts over the full unfiltered evidence set.
type EvidenceStats struct {
	Total        int
	ByType       map[models.EvidenceType]int
	ExpiringSoon int
	Expired      int
}

// Stats folds over the whole evidence store, applying the validity
// classifier uniformly to every record. It is recomputed on demand, never
// maintained incrementally.
func (s *EvidenceService) Stats(ctx context.Context) (*EvidenceStats, error) {
	records, err := s.repos.Evidence(s.db).List(ctx, models.EvidenceFilter{})
	if err != nil {
		return nil, fmt.Errorf("error listing evidence: %w", err)
	}

	now := s.now()
	stats := &EvidenceStats{ByType: make(map[models.EvidenceType]int)}

	for _, e := range records {
		stats.Total++
		stats.ByType[e.Type]++
		switch validity.Evaluate(now, e.ValidUntil) {
		case validity.ExpiringSoon:
			stats.ExpiringSoon++
		case validity.Expired:
			stats.Expired++
		}
	}

	return stats, nil
}

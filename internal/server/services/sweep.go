package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complyvault/evidenced/internal/common"
)

// SweepReport summarizes one orphan-reconciliation pass.
type SweepReport struct {
	// Scanned is the number of stale credential_issued records examined.
	Scanned int
	// Finalized is the number of records attached because their object was
	// found in the storage gateway.
	Finalized int
	// Orphaned is the number of records whose object is absent: the upload
	// was never completed. They are reported, not deleted.
	Orphaned int
	// Failed is the number of records the gateway could not be asked about.
	Failed int
}

// SweepOrphans reconciles records stuck in credential_issued longer than
// olderThan against the storage gateway. A record whose object exists is
// finalized with the gateway-reported size and content type; a record
// whose object is absent is left untouched and counted as an orphan.
//
// The original protocol had no reconciliation at all: orphans accumulated
// forever. The sweep is therefore opt-in (see config.SweepInterval) and
// never deletes anything.
func (s *EvidenceService) SweepOrphans(ctx context.Context, olderThan time.Duration) (*SweepReport, error) {
	repo := s.repos.Evidence(s.db)

	cutoff := s.now().Add(-olderThan)
	stale, err := repo.SelectStalePending(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error selecting stale records: %w", err)
	}

	report := &SweepReport{Scanned: len(stale)}

	for _, e := range stale {
		info, err := s.gateway.Head(ctx, e.PendingFileKey)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				report.Orphaned++
				s.logger.Warn(ctx, "orphaned pending record", "evidence_id", e.ID, "file_key", e.PendingFileKey)
				continue
			}
			report.Failed++
			s.logger.Error(ctx, "gateway probe failed", "evidence_id", e.ID, "error", err.Error())
			continue
		}

		updated, err := repo.Attach(ctx, e.ID, e.PendingFileKey, info.Size, info.ContentType)
		if err != nil {
			report.Failed++
			s.logger.Error(ctx, "sweep attach failed", "evidence_id", e.ID, "error", err.Error())
			continue
		}
		if updated {
			report.Finalized++
			s.logger.Info(ctx, "stale upload finalized", "evidence_id", e.ID, "file_key", e.PendingFileKey)
		}
	}

	return report, nil
}

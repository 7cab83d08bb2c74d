package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/repository"
	"github.com/buddybox/buddybox/internal/metrics"
)

// CleanupResult lists what a retention pass removed and what it could not.
type CleanupResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// CleanupService applies the keep-last-N retention policy to automated
// backups. Manually created backups are never touched.
type CleanupService struct {
	store  repository.BackupRepository
	logger zerolog.Logger
}

func NewCleanupService(store repository.BackupRepository, logger zerolog.Logger) *CleanupService {
	return &CleanupService{
		store:  store,
		logger: logger.With().Str("component", "retention").Logger(),
	}
}

// Cleanup keeps the keepCount newest automated backups and deletes the rest.
// A failure on one backup is recorded and the pass continues.
func (s *CleanupService) Cleanup(ctx context.Context, keepCount int) (*CleanupResult, error) {
	if keepCount < 0 {
		return nil, NewValidationError("keepCount must not be negative")
	}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	result := &CleanupResult{Deleted: []string{}}
	kept := 0
	for _, job := range all {
		if !job.Automated {
			continue
		}
		if kept < keepCount {
			kept++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if _, err := s.store.Delete(ctx, job.ID); err != nil {
			s.logger.Warn().Err(err).Str("backup_id", job.ID).Msg("Failed to delete old backup")
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[job.ID] = err.Error()
			continue
		}
		metrics.RetentionDeleted.Inc()
		result.Deleted = append(result.Deleted, job.ID)
	}

	if len(result.Deleted) > 0 || len(result.Failed) > 0 {
		s.logger.Info().
			Int("kept", kept).
			Int("deleted", len(result.Deleted)).
			Int("failed", len(result.Failed)).
			Msg("Retention pass finished")
	}
	return result, nil
}

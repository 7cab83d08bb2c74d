package service

import (
	"context"
	"fmt"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

type ProcessService struct {
	processRepo repository.ProcessRepository
}

func NewProcessService(processRepo repository.ProcessRepository) *ProcessService {
	return &ProcessService{
		processRepo: processRepo,
	}
}

// ListForBackup returns the commands run on behalf of a backup, newest
// first, with the total matching count.
func (s *ProcessService) ListForBackup(ctx context.Context, backupID string, filter repository.ProcessFilter) ([]*domain.Process, int, error) {
	filter.BackupID = &backupID

	processes, err := s.processRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list processes: %w", err)
	}
	total, err := s.processRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count processes: %w", err)
	}
	return processes, total, nil
}

// GetProcessByCommandID retrieves a process by command ID
func (s *ProcessService) GetProcessByCommandID(ctx context.Context, commandID string) (*domain.Process, error) {
	return s.processRepo.FindByCommandID(ctx, commandID)
}

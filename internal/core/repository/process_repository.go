package repository

import (
	"context"

	"github.com/buddybox/buddybox/internal/core/domain"
)

type ProcessFilter struct {
	BackupID *string
	Status   *domain.ProcessStatus
	Producer *string
	Page     int
	PerPage  int
}

type ProcessRepository interface {
	Create(ctx context.Context, process *domain.Process) error
	Update(ctx context.Context, process *domain.Process) error
	FindByCommandID(ctx context.Context, commandID string) (*domain.Process, error)
	List(ctx context.Context, filter ProcessFilter) ([]*domain.Process, error)
	Count(ctx context.Context, filter ProcessFilter) (int, error)
}

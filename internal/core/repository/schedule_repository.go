package repository

import (
	"context"

	"github.com/buddybox/buddybox/internal/core/domain"
)

type ScheduleRepository interface {
	// Get returns the stored schedule, or the default one if none was saved.
	Get(ctx context.Context) (domain.Schedule, error)
	Save(ctx context.Context, schedule domain.Schedule) error
}

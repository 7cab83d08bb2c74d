package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

// ScheduleStore persists the schedule document as schedule.json in the backup root.
type ScheduleStore struct {
	path string
	mu   sync.Mutex
}

var _ repository.ScheduleRepository = (*ScheduleStore)(nil)

func NewScheduleStore(root string) (*ScheduleStore, error) {
	if err := os.MkdirAll(root, backupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &ScheduleStore{path: filepath.Join(root, scheduleFile)}, nil
}

func (s *ScheduleStore) Get(_ context.Context) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var schedule domain.Schedule
	if err := readJSON(s.path, &schedule); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DefaultSchedule(), nil
		}
		return domain.Schedule{}, fmt.Errorf("failed to read schedule: %w", err)
	}
	return schedule, nil
}

func (s *ScheduleStore) Save(_ context.Context, schedule domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.path, schedule); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

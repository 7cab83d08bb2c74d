package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// protectedParents may never directly contain a working directory.
var protectedParents = []string{"/", "/etc", "/var", "/usr", "/bin", "/sbin", "/home", "/root"}

// Adapter performs the filesystem housekeeping around a backup job.
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// CreateWorkDir creates a fresh private working directory. An existing
// directory at path is an error: ids are unique, so a leftover means another
// run owns it.
func (a *Adapter) CreateWorkDir(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.Mkdir(path, 0o700); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	return nil
}

// RemoveWorkDir deletes a working directory and all its contents.
func (a *Adapter) RemoveWorkDir(_ context.Context, path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	clean := filepath.Clean(path)
	for _, p := range protectedParents {
		if filepath.Dir(clean) == p {
			return fmt.Errorf("refusing to delete directory under %s: %s", p, clean)
		}
	}
	if !strings.HasPrefix(filepath.Base(clean), "temp_") {
		return fmt.Errorf("refusing to delete non-working directory: %s", clean)
	}

	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

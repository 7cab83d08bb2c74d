package producer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// copyPaths copies each existing path to <subdir>/<basename>. Missing paths
// are skipped.
type copyPaths struct {
	name   string
	subdir string
	paths  []string
	runner CommandRunner
}

func (p *copyPaths) Name() string {
	return p.name
}

func (p *copyPaths) Produce(ctx context.Context, target Target) error {
	dst := filepath.Join(target.WorkDir, p.subdir)

	var errs []error
	for _, src := range p.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !exists(src) {
			continue
		}
		if err := copyInto(ctx, p.runner, target, p.name, src, dst, filepath.Base(src)); err != nil {
			errs = append(errs, fmt.Errorf("failed to copy %s: %w", src, err))
		}
	}
	return errors.Join(errs...)
}

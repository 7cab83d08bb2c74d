package producer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

const configsDir = "configs"

// serviceConfig copies one service's configuration directory to
// configs/<service>.
type serviceConfig struct {
	service string
	path    string
	known   bool
	runner  CommandRunner
}

func (p *serviceConfig) Name() string {
	return "config:" + p.service
}

func (p *serviceConfig) Produce(ctx context.Context, target Target) error {
	if !p.known {
		return fmt.Errorf("%w: %s", ErrUnknownService, p.service)
	}
	if !exists(p.path) {
		return fmt.Errorf("configuration for %s not found at %s", p.service, p.path)
	}
	dst := filepath.Join(target.WorkDir, configsDir)
	if err := copyInto(ctx, p.runner, target, p.Name(), p.path, dst, p.service); err != nil {
		return fmt.Errorf("failed to copy %s configuration: %w", p.service, err)
	}
	return nil
}

// allConfigs copies every known service's configuration that is present on
// this host. Services that are not installed are skipped.
type allConfigs struct {
	set *Set
}

func (p *allConfigs) Name() string {
	return "configs"
}

func (p *allConfigs) Produce(ctx context.Context, target Target) error {
	var errs []error
	for _, name := range p.set.ServiceNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := p.set.cfg.Services[name]
		if !exists(path) {
			p.set.logger.Debug().Str("service", name).Str("path", path).Msg("service not installed, skipping")
			continue
		}
		if err := p.set.Config(name).Produce(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

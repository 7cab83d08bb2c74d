package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/buddybox/buddybox/internal/api"
	"github.com/buddybox/buddybox/internal/scheduler"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long:  "Start the REST API server and, unless disabled, the backup scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecretKey == "" {
			return errors.New("jwt_secret_key must be set to run the API server")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		services, err := initServices(ctx)
		if err != nil {
			return err
		}

		server := api.NewServer(
			cfg,
			logger,
			services.AuthService,
			services.BackupService,
			services.ProcessService,
			services.ScheduleService,
			services.CleanupService,
		)

		var sched *scheduler.Scheduler
		if cfg.SchedulerEnabled {
			sched = scheduler.New(services.ScheduleService, cfg.DailyCron, logger)
			services.ScheduleService.OnUpdate(sched.Apply)
			if err := sched.Start(ctx); err != nil {
				services.Close(ctx)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info().Msg("Shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
			defer cancel()

			var errs []error
			if err := server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
			if sched != nil {
				if err := sched.Stop(shutdownCtx); err != nil {
					errs = append(errs, fmt.Errorf("scheduler shutdown error: %w", err))
				}
			}
			services.Close(shutdownCtx)
			return errors.Join(errs...)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/buddybox/buddybox/internal/adapter/producer"
	"github.com/buddybox/buddybox/internal/adapter/system"
	"github.com/buddybox/buddybox/internal/core/service"
	"github.com/buddybox/buddybox/internal/infrastructure/filestore"
	"github.com/buddybox/buddybox/internal/infrastructure/sqlite"
	"github.com/buddybox/buddybox/internal/logging"
	"github.com/buddybox/buddybox/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	logFile io.Closer
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buddybox",
	Short: "BuddyBox - server backup orchestration",
	Long: `BuddyBox backs up a hosting server's databases, service configuration
and application data into self-contained archives.

It provides:
- Full, database and configuration backups
- A daily automated backup with count-based retention
- Cron schedules for automated backups
- REST API for the management dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, logFile, err = logging.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps a command error to the process exit status. Rejected input,
// such as an unknown service or a bad database name, exits with ExitUsage so
// cron wrappers can tell it apart from a failed backup.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case service.IsValidationError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigPath+")")
}

// initServices initializes all services
func initServices(ctx context.Context) (*Services, error) {
	// Initialize database
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	backupStore, err := filestore.NewBackupStore(cfg.BackupDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open backup directory: %w", err)
	}
	scheduleStore, err := filestore.NewScheduleStore(cfg.BackupDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open schedule store: %w", err)
	}
	processRepo := sqlite.NewProcessRepository(db)

	// Producers and the job runner
	commands := system.NewRunner(processRepo, cfg.ProducerTimeout, logger)
	producers := producer.NewSet(producer.Config{
		Services:         cfg.Services,
		AppPaths:         cfg.AppPaths,
		AppDir:           cfg.AppDir,
		AppConfigFiles:   cfg.AppConfigFiles,
		LogsDir:          cfg.LogsDir,
		PGDumpCommand:    cfg.PGDumpCommand,
		PSQLCommand:      cfg.PSQLCommand,
		MySQLDumpCommand: cfg.MySQLDumpCommand,
		MySQLCommand:     cfg.MySQLCommand,
		PostgresDSN:      cfg.PostgresDSN,
	}, commands, logger)
	runner := service.NewJobRunner(backupStore, producers, system.NewAdapter(), cfg.MaxConcurrentJobs, logger)

	// Initialize services
	authService := service.NewAuthService(cfg.JWTSecretKey, cfg.JWTAlgorithm)
	processService := service.NewProcessService(processRepo)
	backupService := service.NewBackupService(backupStore, runner, producers, cfg.StaleJobAfter, logger)
	cleanupService := service.NewCleanupService(backupStore, logger)
	scheduleService := service.NewScheduleService(scheduleStore, backupService, cleanupService, cfg.BackupDir, cfg.DailyKeepCount, logger)

	logger.Debug().
		Str("backup_dir", cfg.BackupDir).
		Strs("services", producers.ServiceNames()).
		Msg("Services initialized")

	return &Services{
		DB:              db,
		Runner:          runner,
		AuthService:     authService,
		ProcessService:  processService,
		BackupService:   backupService,
		CleanupService:  cleanupService,
		ScheduleService: scheduleService,
	}, nil
}

// Services holds all initialized services
type Services struct {
	DB              *sqlite.DB
	Runner          *service.JobRunner
	AuthService     *service.AuthService
	ProcessService  *service.ProcessService
	BackupService   *service.BackupService
	CleanupService  *service.CleanupService
	ScheduleService *service.ScheduleService
}

// Close waits for background backups and closes all resources
func (s *Services) Close(ctx context.Context) {
	if s.Runner != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Runner.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Backups still running at shutdown were cancelled")
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

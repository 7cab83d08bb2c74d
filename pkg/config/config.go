package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Required fields
	BackupDir    string `mapstructure:"backup_dir"`
	JWTSecretKey string `mapstructure:"jwt_secret_key"`

	// Optional API settings
	APIHost string `mapstructure:"api_host"`
	APIPort int    `mapstructure:"api_port"`

	// Optional SSL settings
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	// Optional CORS settings
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Requests per minute per client on the create endpoints; 0 disables.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`

	// Optional logging settings
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// Optional JWT settings
	JWTAlgorithm string `mapstructure:"jwt_algorithm"`

	// Process history database
	DBPath string `mapstructure:"db_path"`

	// Job execution
	ProducerTimeout   time.Duration `mapstructure:"producer_timeout"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	// StaleJobAfter marks old InProgress records failed on read, unless a
	// process still holds the job's lock file. 0 disables it.
	StaleJobAfter     time.Duration `mapstructure:"stale_job_after"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`

	// Scheduler
	SchedulerEnabled bool   `mapstructure:"scheduler_enabled"`
	DailyCron        string `mapstructure:"daily_cron"`
	// DailyKeepCount is how many automated backups retention keeps. Jobs
	// started by stored schedule entries are automated too and count
	// against the same limit as the daily ones.
	DailyKeepCount   int    `mapstructure:"daily_keep_count"`

	// Backup content
	Services       map[string]string `mapstructure:"services"`
	AppPaths       []string          `mapstructure:"app_paths"`
	AppDir         string            `mapstructure:"app_dir"`
	AppConfigFiles []string          `mapstructure:"app_config_files"`
	LogsDir        string            `mapstructure:"logs_dir"`
	PostgresDSN    string            `mapstructure:"postgres_dsn"`

	// External tools, as argument vectors
	PGDumpCommand    []string `mapstructure:"pg_dump_command"`
	PSQLCommand      []string `mapstructure:"psql_command"`
	MySQLDumpCommand []string `mapstructure:"mysqldump_command"`
	MySQLCommand     []string `mapstructure:"mysql_command"`

	// Static paths
	ConfigPath string `mapstructure:"-"`
}

const (
	DefaultConfigPath        = "/etc/buddybox/config.yml"
	DefaultBackupDir         = "/var/backups/buddybox"
	DefaultDBPath            = "/var/lib/buddybox/buddybox.sqlite3"
	DefaultAPIHost           = "0.0.0.0"
	DefaultAPIPort           = 5000
	DefaultLogLevel          = "info"
	DefaultJWTAlgorithm      = "HS256"
	DefaultProducerTimeout   = 30 * time.Minute
	DefaultMaxConcurrentJobs = 2
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultDailyCron         = "0 2 * * *"
	DefaultDailyKeepCount    = 7
	DefaultAppDir            = "/opt/buddybox"
)

// DefaultServices are the services whose configuration directories can be
// backed up individually.
var DefaultServices = map[string]string{
	"nginx":      "/etc/nginx",
	"apache":     "/etc/apache2",
	"postfix":    "/etc/postfix",
	"dovecot":    "/etc/dovecot",
	"bind":       "/etc/bind",
	"fail2ban":   "/etc/fail2ban",
	"mysql":      "/etc/mysql",
	"postgresql": "/etc/postgresql",
}

// Load reads configuration from configPath, the environment and an optional
// .env file in the working directory. A missing file at the default path is
// not an error; a missing explicitly named file is.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// Allow environment variable overrides
	v.SetEnvPrefix("BUDDYBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("backup_dir", "BUDDYBOX_BACKUP_DIR", "BACKUP_DIR"); err != nil {
		return nil, fmt.Errorf("failed to bind BACKUP_DIR: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigPath = configPath

	// An empty path disables a default service.
	for name, path := range cfg.Services {
		if path == "" {
			delete(cfg.Services, name)
		}
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("api_host", DefaultAPIHost)
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("jwt_algorithm", DefaultJWTAlgorithm)
	v.SetDefault("producer_timeout", DefaultProducerTimeout)
	v.SetDefault("max_concurrent_jobs", DefaultMaxConcurrentJobs)
	v.SetDefault("stale_job_after", 0)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("daily_cron", DefaultDailyCron)
	v.SetDefault("daily_keep_count", DefaultDailyKeepCount)
	v.SetDefault("rate_limit_per_minute", 0)
	v.SetDefault("services", DefaultServices)
	v.SetDefault("app_paths", []string{"/var/www", "/home/buddybox"})
	v.SetDefault("app_dir", DefaultAppDir)
	v.SetDefault("app_config_files", []string{".env", "package.json", "client/package.json"})
	v.SetDefault("logs_dir", "logs")
	v.SetDefault("pg_dump_command", []string{"pg_dump"})
	v.SetDefault("psql_command", []string{"psql"})
	v.SetDefault("mysqldump_command", []string{"mysqldump"})
	v.SetDefault("mysql_command", []string{"mysql"})
}

func (c *Config) Validate() error {
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir is required")
	}
	if !strings.HasPrefix(c.BackupDir, "/") {
		return fmt.Errorf("backup_dir must be an absolute path: %s", c.BackupDir)
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port out of range: %d", c.APIPort)
	}

	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1")
	}

	if c.DailyKeepCount < 0 {
		return fmt.Errorf("daily_keep_count must not be negative")
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative")
	}

	for name, cmd := range map[string][]string{
		"pg_dump_command":   c.PGDumpCommand,
		"psql_command":      c.PSQLCommand,
		"mysqldump_command": c.MySQLDumpCommand,
		"mysql_command":     c.MySQLCommand,
	} {
		if len(cmd) == 0 || cmd[0] == "" {
			return fmt.Errorf("%s must name a program", name)
		}
	}

	// Validate SSL config if provided
	if c.SSLCert != "" || c.SSLKey != "" {
		if c.SSLCert == "" || c.SSLKey == "" {
			return fmt.Errorf("both ssl_cert and ssl_key must be provided")
		}
		if _, err := os.Stat(c.SSLCert); os.IsNotExist(err) {
			return fmt.Errorf("ssl_cert file does not exist: %s", c.SSLCert)
		}
		if _, err := os.Stat(c.SSLKey); os.IsNotExist(err) {
			return fmt.Errorf("ssl_key file does not exist: %s", c.SSLKey)
		}
	}

	return nil
}

// TLSEnabled reports whether the API should be served over HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.SSLCert != "" && c.SSLKey != ""
}

func (c *Config) IsDevMode() bool {
	return os.Getenv("BUDDYBOX_DEV_MODE") == "1"
}

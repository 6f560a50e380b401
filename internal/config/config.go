package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverREST     = "rest"
	DriverFixture  = "fixture"
)

type Config struct {
	Server struct {
		Address             string   `yaml:"address" env:"COACHSITE_ADDR"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		AllowedOrigins      []string `yaml:"allowed_origins" env:"COACHSITE_ALLOWED_ORIGINS"`
		RequestsPerMinute   int      `yaml:"requests_per_minute"`
		TrustedProxies      int      `yaml:"trusted_proxies" env:"COACHSITE_TRUSTED_PROXIES"`
	} `yaml:"server"`

	Storage struct {
		Driver              string `yaml:"driver" env:"COACHSITE_STORAGE_DRIVER"`
		Path                string `yaml:"path" env:"COACHSITE_SQLITE_PATH"`
		DSN                 string `yaml:"dsn" env:"COACHSITE_DATABASE_DSN"`
		FixturePath         string `yaml:"fixture_path"`
		FixtureWatchSeconds int    `yaml:"fixture_watch_seconds"`
		Fallback            *bool  `yaml:"fallback"`
	} `yaml:"storage"`

	REST struct {
		BaseURL         string `yaml:"base_url" env:"COACHSITE_REST_URL"`
		APIKey          string `yaml:"api_key" env:"COACHSITE_REST_KEY"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"rest"`

	Redis struct {
		Address  string `yaml:"address" env:"COACHSITE_REDIS_ADDR"`
		Password string `yaml:"password" env:"COACHSITE_REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Booking struct {
		SessionTimeoutMinutes  int             `yaml:"session_timeout_minutes"`
		CleanupIntervalSeconds int             `yaml:"cleanup_interval_seconds"`
		DaysAhead              int             `yaml:"days_ahead"`
		DaysOff                []string        `yaml:"days_off"`
		FirstSlot              string          `yaml:"first_slot"`
		LastSlot               string          `yaml:"last_slot"`
		SlotMinutes            int             `yaml:"slot_minutes"`
		TimezoneLabel          string          `yaml:"timezone_label"`
		PreventDoubleBooking   *bool           `yaml:"prevent_double_booking"`
		Services               []ServiceConfig `yaml:"services"`
	} `yaml:"booking"`

	Admin struct {
		JWTSecret           string        `yaml:"jwt_secret" env:"COACHSITE_JWT_SECRET"`
		Users               []AdminConfig `yaml:"users"`
		LoginAttemptsPerMin int           `yaml:"login_attempts_per_minute"`
		BookmarkTTLDays     int           `yaml:"bookmark_ttl_days"`
		SecureCookies       bool          `yaml:"secure_cookies"`
	} `yaml:"admin"`

	Notify struct {
		Telegram struct {
			BotToken string  `yaml:"bot_token" env:"COACHSITE_TELEGRAM_TOKEN"`
			ChatIDs  []int64 `yaml:"chat_ids"`
			Debug    bool    `yaml:"debug"`
		} `yaml:"telegram"`
		SMTP struct {
			Host     string `yaml:"host" env:"COACHSITE_SMTP_HOST"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username" env:"COACHSITE_SMTP_USER"`
			Password string `yaml:"password" env:"COACHSITE_SMTP_PASSWORD"`
			From     string `yaml:"from" env:"COACHSITE_SMTP_FROM"`
			FromName string `yaml:"from_name"`
		} `yaml:"smtp"`
		// DigestHour is the local hour of the daily bookings summary; nil means 9.
		DigestHour *int `yaml:"digest_hour"`
	} `yaml:"notify"`

	Media struct {
		MaxUploadMB int    `yaml:"max_upload_mb"`
		LocalDir    string `yaml:"local_dir"`
		PublicPath  string `yaml:"public_path"`
		S3          struct {
			Bucket    string `yaml:"bucket" env:"COACHSITE_S3_BUCKET"`
			Region    string `yaml:"region" env:"COACHSITE_S3_REGION"`
			Endpoint  string `yaml:"endpoint"`
			PublicURL string `yaml:"public_url"`
		} `yaml:"s3"`
	} `yaml:"media"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetID   string `yaml:"spreadsheet_id" env:"COACHSITE_SHEETS_ID"`
		Range           string `yaml:"range"`
		CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	} `yaml:"sheets"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		GRPCHealthPort    int  `yaml:"grpc_health_port"`
		GRPCRefreshSecs   int  `yaml:"grpc_refresh_seconds"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Log struct {
		Level  string `yaml:"level" env:"COACHSITE_LOG_LEVEL"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// ServiceConfig is one entry of the consultation catalog.
type ServiceConfig struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Duration    string `yaml:"duration"`
}

// AdminConfig is an admin account. PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"`
}

// Load reads the YAML config at path, applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COACHSITE_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == DriverSQLite {
		if err = os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestsPerMinute <= 0 {
		c.Server.RequestsPerMinute = 120
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Path == "" {
		c.Storage.Path = "data/coachsite.db"
	}
	if c.Booking.TimezoneLabel == "" {
		c.Booking.TimezoneLabel = "EST"
	}
	if c.Admin.LoginAttemptsPerMin <= 0 {
		c.Admin.LoginAttemptsPerMin = 5
	}
	if c.Media.LocalDir == "" {
		c.Media.LocalDir = "data/media"
	}
	if c.Media.PublicPath == "" {
		c.Media.PublicPath = "/media/"
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = "Bookings!A1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverFixture:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	case DriverREST:
		if c.REST.BaseURL == "" {
			return errors.New("rest.base_url is required for the rest driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if len(c.Admin.Users) > 0 && c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when admin users are configured")
	}
	for _, d := range c.Booking.DaysOff {
		if _, ok := parseWeekday(d); !ok {
			return fmt.Errorf("booking.days_off: unknown weekday %q", d)
		}
	}
	if c.Notify.DigestHour != nil && (*c.Notify.DigestHour < 0 || *c.Notify.DigestHour > 23) {
		return errors.New("notify.digest_hour must be between 0 and 23")
	}
	if c.Server.TrustedProxies < 0 {
		return errors.New("server.trusted_proxies must not be negative")
	}
	return nil
}

func (c *Config) ServerReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) ServerWriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) WizardTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) WizardCleanupInterval() time.Duration {
	if c.Booking.CleanupIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Booking.CleanupIntervalSeconds) * time.Second
}

// PreventDoubleBooking defaults to true.
func (c *Config) PreventDoubleBooking() bool {
	if c.Booking.PreventDoubleBooking == nil {
		return true
	}
	return *c.Booking.PreventDoubleBooking
}

// StorageFallback defaults to true.
func (c *Config) StorageFallback() bool {
	if c.Storage.Fallback == nil {
		return true
	}
	return *c.Storage.Fallback
}

// BookingDaysOff returns the configured weekdays off, or nil to use the Saturday/Sunday default.
func (c *Config) BookingDaysOff() []time.Weekday {
	if c.Booking.DaysOff == nil {
		return nil
	}
	days := make([]time.Weekday, 0, len(c.Booking.DaysOff))
	for _, d := range c.Booking.DaysOff {
		if wd, ok := parseWeekday(d); ok {
			days = append(days, wd)
		}
	}
	return days
}

func (c *Config) RESTTimeout() time.Duration {
	if c.REST.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.REST.TimeoutSeconds) * time.Second
}

func (c *Config) RESTCacheTTL() time.Duration {
	if c.REST.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.REST.CacheTTLSeconds) * time.Second
}

func (c *Config) FixtureWatchInterval() time.Duration {
	if c.Storage.FixtureWatchSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Storage.FixtureWatchSeconds) * time.Second
}

func (c *Config) BookmarkTTL() time.Duration {
	if c.Admin.BookmarkTTLDays <= 0 {
		return 180 * 24 * time.Hour
	}
	return time.Duration(c.Admin.BookmarkTTLDays) * 24 * time.Hour
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) DigestHour() int {
	if c.Notify.DigestHour == nil {
		return 9
	}
	return *c.Notify.DigestHour
}

func (c *Config) GRPCRefreshInterval() time.Duration {
	if c.Monitoring.GRPCRefreshSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Monitoring.GRPCRefreshSecs) * time.Second
}

// MaxUploadBytes defaults to 5 MB.
func (c *Config) MaxUploadBytes() int64 {
	if c.Media.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(c.Media.MaxUploadMB) << 20
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"testdrive/internal/models"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Vehicles   []models.Vehicle `yaml:"vehicles"`
}

// BookingConfig holds the request rules that are policy rather than invariant.
type BookingConfig struct {
	Timezone         string `yaml:"timezone"`
	HorizonDays      int    `yaml:"horizon_days"`
	AllowedDurations []int  `yaml:"allowed_durations"`
	MinDurationMins  int    `yaml:"min_duration_mins"`
	MaxDurationMins  int    `yaml:"max_duration_mins"`
}

// Location resolves Timezone, defaulting to UTC.
func (c BookingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// DSN builds a libpq-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverPostgres:
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Booking.Timezone != "" {
		if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
			return fmt.Errorf("booking timezone: %w", err)
		}
	}
	if c.Booking.HorizonDays < 0 {
		return errors.New("booking horizon_days must not be negative")
	}
	for _, d := range c.Booking.AllowedDurations {
		if d <= 0 {
			return fmt.Errorf("allowed duration %d must be positive", d)
		}
	}
	if c.Booking.MaxDurationMins > 0 && c.Booking.MinDurationMins > c.Booking.MaxDurationMins {
		return errors.New("booking min_duration_mins exceeds max_duration_mins")
	}

	if c.Backup.Enabled {
		if c.Database.Driver != DriverSQLite {
			return errors.New("backups are only supported for the sqlite driver")
		}
		if c.Backup.StoragePath == "" {
			return errors.New("backup storage_path is required when backups are enabled")
		}
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup schedule: %w", err)
		}
	}

	return ValidateVehicles(c.Vehicles)
}

func ValidateVehicles(vehicles []models.Vehicle) error {
	vehicleIDs := make(map[int64]bool)
	for _, v := range vehicles {
		if v.ID == 0 {
			return fmt.Errorf("vehicle '%s' has invalid ID 0", v.Name)
		}
		if vehicleIDs[v.ID] {
			return fmt.Errorf("duplicate vehicle ID found: %d", v.ID)
		}
		vehicleIDs[v.ID] = true

		if strings.TrimSpace(v.Type) == "" || strings.TrimSpace(v.Location) == "" {
			return fmt.Errorf("vehicle %d: type and location are required", v.ID)
		}
		if v.AvailableFrom >= v.AvailableTo {
			return fmt.Errorf("vehicle %d: available_from %s must be before available_to %s",
				v.ID, v.AvailableFrom, v.AvailableTo)
		}
		if v.Timezone != "" {
			if _, err := time.LoadLocation(v.Timezone); err != nil {
				return fmt.Errorf("vehicle %d: %w", v.ID, err)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "testdrive"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.Requests == 0 {
		c.API.RateLimit.Requests = models.DefaultRateLimitRequests
	}
	if c.API.RateLimit.WindowSeconds == 0 {
		c.API.RateLimit.WindowSeconds = models.DefaultRateLimitWindow
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = models.DefaultBackupRetentionDays
	}

	NormalizeVehicles(c.Vehicles)
}

// NormalizeVehicles lower-cases type and location and fills an all-week, full-day window
// where none is given.
func NormalizeVehicles(vehicles []models.Vehicle) {
	for i := range vehicles {
		v := &vehicles[i]
		v.Type = strings.ToLower(strings.TrimSpace(v.Type))
		v.Location = strings.ToLower(strings.TrimSpace(v.Location))
		if len(v.AvailableDays) == 0 {
			v.AvailableDays = models.AllWeekdays()
		}
		if v.AvailableTo == 0 {
			v.AvailableTo = models.EndOfDay
		}
	}
}

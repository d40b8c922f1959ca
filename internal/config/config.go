package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Leave    LeaveConfig
	Storage  StorageConfig
	Admin    AdminSeedConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// SQLitePath is used when Driver is sqlite.
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type LeaveConfig struct {
	AnnualGrant         int
	LowBalanceThreshold int
	// StartYear seeds the leave-year settings on first start.
	StartYear         int
	RolloverBatchSize int
	RefreshInterval   time.Duration
	PositionHierarchy []string
}

type StorageConfig struct {
	Type     string
	BasePath string
	BaseURL  string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PathStyle       bool
}

// AdminSeedConfig creates the first administrator on startup when both
// fields are set.
type AdminSeedConfig struct {
	Email    string
	Name     string
	Password string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       dbPort,
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", "leave_tracker"),
		SSLMode:    getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "leave-tracker.db"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.App.CORSOrigins) == 0 {
		config.App.CORSOrigins = []string{"http://localhost:3000"}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "8h"),
	}

	// Leave configuration
	grant, err := getEnvInt("LEAVE_ANNUAL_GRANT", 12)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvInt("LEAVE_LOW_BALANCE_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}
	startYear, err := getEnvInt("LEAVE_START_YEAR", time.Now().Year())
	if err != nil {
		return nil, err
	}
	batchSize, err := getEnvInt("LEAVE_ROLLOVER_BATCH_SIZE", 0)
	if err != nil {
		return nil, err
	}
	refresh, err := time.ParseDuration(getEnv("ONLEAVE_REFRESH_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ONLEAVE_REFRESH_INTERVAL: %w", err)
	}

	config.Leave = LeaveConfig{
		AnnualGrant:         grant,
		LowBalanceThreshold: threshold,
		StartYear:           startYear,
		RolloverBatchSize:   batchSize,
		RefreshInterval:     refresh,
		PositionHierarchy:   getEnvSlice("POSITION_HIERARCHY"),
	}

	// Storage configuration
	pathStyle, err := strconv.ParseBool(getEnv("S3_USE_PATH_STYLE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_USE_PATH_STYLE: %w", err)
	}

	config.Storage = StorageConfig{
		Type:              strings.ToLower(getEnv("STORAGE_TYPE", StorageLocal)),
		BasePath:          getEnv("STORAGE_BASE_PATH", "./storage"),
		BaseURL:           getEnv("STORAGE_BASE_URL", "/storage"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PathStyle:       pathStyle,
	}

	config.Admin = AdminSeedConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Name:     getEnv("ADMIN_NAME", "Administrator"),
		Password: getEnv("ADMIN_PASSWORD", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s", DriverPostgres, DriverSQLite)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	if c.Leave.AnnualGrant <= 0 {
		return fmt.Errorf("LEAVE_ANNUAL_GRANT must be positive")
	}
	if c.Leave.LowBalanceThreshold < 0 {
		return fmt.Errorf("LEAVE_LOW_BALANCE_THRESHOLD must not be negative")
	}
	if c.Leave.RolloverBatchSize < 0 {
		return fmt.Errorf("LEAVE_ROLLOVER_BATCH_SIZE must not be negative")
	}
	if c.Leave.RefreshInterval <= 0 {
		return fmt.Errorf("ONLEAVE_REFRESH_INTERVAL must be positive")
	}

	switch c.Storage.Type {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be %s or %s", StorageLocal, StorageS3)
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // mattn/go-sqlite3, cgo
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Log      LogConfig
	WhatsApp WhatsAppConfig
	Client   ClientConfig
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host        string
	GRPCPort    int
	HTTPPort    int
	MetricsPort int // Port for Prometheus metrics HTTP server
}

// CacheConfig represents API key cache configuration
type CacheConfig struct {
	Enabled        bool
	Backend        string // "memory" or "redis"
	MaxMemoryBytes int64  // Maximum memory usage in bytes (e.g., 104857600 = 100MB)
	TTLMinutes     int    // Time-to-live for cache entries in minutes
}

// RedisConfig represents redis connection settings for the redis cache backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig represents logger settings
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// WhatsAppConfig represents the reminder notifier settings
type WhatsAppConfig struct {
	Enabled bool
	DataDir string // Directory holding the whatsmeow device store
}

// ClientConfig represents how flockctl reaches a running server
type ClientConfig struct {
	Addr   string // gRPC address, e.g. "localhost:50051"
	APIKey string
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")

	// Installed binaries run outside the source tree, so a missing go.mod is not fatal
	if projectRoot, err := findProjectRoot(); err == nil {
		viper.AddConfigPath(projectRoot)
	}
	viper.AddConfigPath(".")

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("GRPC_PORT", 50051)
	viper.SetDefault("HTTP_PORT", 8080)
	viper.SetDefault("METRICS_PORT", 9090)

	viper.SetDefault("DB_DRIVER", DriverPostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "flock")
	viper.SetDefault("DB_NAME", "flock_"+env)
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", fmt.Sprintf("flock_%s.db", env))

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_BACKEND", "memory")
	viper.SetDefault("CACHE_MAX_MEMORY_BYTES", 16*1024*1024) // 16MB
	viper.SetDefault("CACHE_TTL_MINUTES", 5)

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("WHATSAPP_ENABLED", false)
	viper.SetDefault("WHATSAPP_DATA_DIR", ".whatsapp")

	viper.SetDefault("FLOCK_ADDR", "localhost:50051")

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	driver := viper.GetString("DB_DRIVER")
	switch driver {
	case DriverPostgres, DriverSQLite, DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres, sqlite or sqlite3)", driver)
	}

	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if driver == DriverPostgres && dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	backend := viper.GetString("CACHE_BACKEND")
	if backend != "memory" && backend != "redis" {
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q (want memory or redis)", backend)
	}

	config := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			GRPCPort:    viper.GetInt("GRPC_PORT"),
			HTTPPort:    viper.GetInt("HTTP_PORT"),
			MetricsPort: viper.GetInt("METRICS_PORT"),
		},
		Database: DatabaseConfig{
			Driver:     driver,
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetInt("DB_PORT"),
			User:       viper.GetString("DB_USER"),
			Password:   dbPassword,
			Database:   viper.GetString("DB_NAME"),
			SSLMode:    viper.GetString("DB_SSLMODE"),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Cache: CacheConfig{
			Enabled:        viper.GetBool("CACHE_ENABLED"),
			Backend:        backend,
			MaxMemoryBytes: viper.GetInt64("CACHE_MAX_MEMORY_BYTES"),
			TTLMinutes:     viper.GetInt("CACHE_TTL_MINUTES"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		WhatsApp: WhatsAppConfig{
			Enabled: viper.GetBool("WHATSAPP_ENABLED"),
			DataDir: viper.GetString("WHATSAPP_DATA_DIR"),
		},
		Client: LoadClient(),
	}

	return config, nil
}

// LoadClient loads only the settings needed to reach a running server, so
// remote commands work without database credentials
func LoadClient() ClientConfig {
	return ClientConfig{
		Addr:   viper.GetString("FLOCK_ADDR"),
		APIKey: viper.GetString("FLOCK_API_KEY"),
	}
}

// ConnectionString returns the data source name for the configured driver
func (c *DatabaseConfig) ConnectionString() string {
	switch c.Driver {
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", c.SQLitePath)
	case DriverSQLite3:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.SQLitePath)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// MigrationURL returns the URL golang-migrate uses to reach the database
func (c *DatabaseConfig) MigrationURL() string {
	switch c.Driver {
	case DriverSQLite:
		return fmt.Sprintf("sqlite://%s?_pragma=foreign_keys(1)", c.SQLitePath)
	case DriverSQLite3:
		return fmt.Sprintf("sqlite3://%s?_foreign_keys=on", c.SQLitePath)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

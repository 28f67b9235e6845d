// Package config handles loading and parsing application configuration.
// It supports three sources, later ones overriding earlier ones:
//  1. A YAML file given by the --config flag or CONFIG_PATH (optional)
//  2. A .env file in the working directory (loaded into the process env)
//  3. Real environment variables
//
// Every key has a default except the database credentials, so the service
// can boot from nothing but DB_* and PORT.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	// Side-effect import: loads ./.env into the process environment
	// before cleanenv reads it.
	_ "github.com/joho/godotenv/autoload"
)

// Supported values for Database.Driver.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND to an environment
// variable (env:"..."), the environment always winning.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	HTTPServer  HTTPServer  `yaml:"http_server"`
	Log         Log         `yaml:"log"`
	Database    Database    `yaml:"database"`
	Auth        Auth        `yaml:"auth"`
	Redis       Redis       `yaml:"redis"`
	ObjectStore ObjectStore `yaml:"object_store"`
	Mongo       Mongo       `yaml:"mongo"`
}

// HTTPServer holds settings for the listening socket and its timeouts.
type HTTPServer struct {
	Host               string        `yaml:"host" env:"HOST" env-default:""`
	Port               string        `yaml:"port" env:"PORT" env-default:"3000" validate:"required"`
	ReadTimeout        time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

// Addr is the host:port pair handed to http.Server.
func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}

// Log controls the zerolog output. An empty level means "pick by Env".
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"" validate:"omitempty,oneof=trace debug info warn error"`
}

// Database describes the shared connection pool.
//
// Host/Port/Username/Password/Name are used by the mysql driver,
// Path by sqlite3.
type Database struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER" env-default:"mysql" validate:"oneof=mysql sqlite3"`
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"3306" validate:"gt=0"`
	Username        string        `yaml:"username" env:"DB_USERNAME" validate:"required_if=Driver mysql"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Name            string        `yaml:"name" env:"DB_DBNAME" validate:"required_if=Driver mysql"`
	Path            string        `yaml:"path" env:"DB_PATH" env-default:"storage/records.db" validate:"required_if=Driver sqlite3"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10" validate:"gt=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"0s"`
	// QueryTimeout bounds a single statement; zero leaves it to the request context.
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT" env-default:"0s"`
	MigrateOnStart bool          `yaml:"migrate_on_start" env:"DB_MIGRATE_ON_START" env-default:"false"`
}

// Auth groups the registration/login knobs.
type Auth struct {
	// PlaintextPasswords keeps the legacy behaviour of storing and
	// comparing passwords verbatim. Off by default: passwords are bcrypt hashed.
	PlaintextPasswords bool          `yaml:"plaintext_passwords" env:"AUTH_PLAINTEXT_PASSWORDS" env-default:"false"`
	MaxImageBytes      int64         `yaml:"max_image_bytes" env:"AUTH_MAX_IMAGE_BYTES" env-default:"5242880" validate:"gt=0"`
	LoginMaxAttempts   int           `yaml:"login_max_attempts" env:"AUTH_LOGIN_MAX_ATTEMPTS" env-default:"5" validate:"gt=0"`
	LoginWindow        time.Duration `yaml:"login_window" env:"AUTH_LOGIN_WINDOW" env-default:"15m"`
}

// Redis is optional; an empty Addr disables login throttling.
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:""`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
}

// ObjectStore is optional; an empty Endpoint keeps images in the IMG column only.
type ObjectStore struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:""`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:""`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:""`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"registration-images"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// Mongo is optional; an empty URI sends audit events to the log instead.
type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:""`
	Database string `yaml:"database" env:"MONGO_DB" env-default:"records_audit"`
}

// Load reads the configuration. An empty path means environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path (flag value first, then CONFIG_PATH)
// and calls Load, exiting the process on failure.
func MustLoad(path string) *Config {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	return cfg
}

// Redacted returns a copy safe to print: every secret is masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Database.Password = mask(c.Database.Password)
	c.Redis.Password = mask(c.Redis.Password)
	c.ObjectStore.SecretKey = mask(c.ObjectStore.SecretKey)
	c.Mongo.URI = mask(c.Mongo.URI)
	return c
}

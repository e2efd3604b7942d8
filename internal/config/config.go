// Package config loads server configuration from an optional YAML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const devJWTSecret = "dev-secret-change-me"

// Config is the full server configuration.
type Config struct {
	Addr        string   `yaml:"addr"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Dev         bool     `yaml:"dev"`
	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`

	Database Database `yaml:"database"`
	JWT      JWT      `yaml:"jwt"`
	Admin    Admin    `yaml:"admin"`
	Redis    Redis    `yaml:"redis"`
}

// Database selects the SQL driver and DSN. Driver is "sqlite3" or "postgres".
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// JWT configures token signing.
type JWT struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// Admin is the account created by the bootstrap command.
type Admin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Redis configures the template workbook cache. An empty URL disables it.
type Redis struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns a development configuration backed by a local SQLite file.
func Default() Config {
	return Config{
		Addr:        ":8000",
		MetricsAddr: ":9090",
		Dev:         true,
		LogLevel:    "info",
		CORSOrigins: []string{"http://localhost:5173"},
		Database:    Database{Driver: "sqlite3", DSN: "xlform.db"},
		JWT:         JWT{Secret: devJWTSecret, Issuer: "xlform", TTL: 24 * time.Hour},
		Redis:       Redis{CacheTTL: 10 * time.Minute},
	}
}

// Load reads path (if non-empty) over the defaults, then applies XLFORM_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("XLFORM_ADDR", &c.Addr)
	str("XLFORM_METRICS_ADDR", &c.MetricsAddr)
	str("XLFORM_LOG_LEVEL", &c.LogLevel)
	str("XLFORM_DB_DRIVER", &c.Database.Driver)
	str("XLFORM_DATABASE_URL", &c.Database.DSN)
	str("XLFORM_JWT_SECRET", &c.JWT.Secret)
	str("XLFORM_JWT_ISSUER", &c.JWT.Issuer)
	str("XLFORM_ADMIN_EMAIL", &c.Admin.Email)
	str("XLFORM_ADMIN_PASSWORD", &c.Admin.Password)
	str("XLFORM_REDIS_URL", &c.Redis.URL)

	if v, ok := lookup("XLFORM_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("XLFORM_DEV"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("XLFORM_DEV: %w", err)
		}
		c.Dev = b
	}
	if v, ok := lookup("XLFORM_JWT_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("XLFORM_JWT_TTL: %w", err)
		}
		c.JWT.TTL = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: must be sqlite3 or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	} else if !c.Dev && c.JWT.Secret == devJWTSecret {
		errs = append(errs, errors.New("jwt.secret must be changed outside dev mode"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

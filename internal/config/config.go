package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultConfigFile = "sql-patch.yml"
	DefaultDriver     = "postgres"
	DefaultHost       = "localhost"
	DefaultTable      = "_schema_patches"
)

// Default ports per driver, used when Port is zero.
const (
	defaultPostgresPort   = 5432
	defaultClickHousePort = 9000
)

// ErrDatabaseRequired is returned by Validate when no database is configured.
var ErrDatabaseRequired = errors.New("missing database argument")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	Driver           string
	DatabaseURL      string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSL              bool
	Table            string
	PatchesDir       string
	CreateDatabase   bool
	Lock             bool
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	Driver           string `yaml:"driver"`
	DatabaseURL      string `yaml:"database_url"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	SSL              *bool  `yaml:"ssl"`
	Table            string `yaml:"table"`
	PatchesDir       string `yaml:"patches_dir"`
	CreateDatabase   *bool  `yaml:"create_database"`
	Lock             *bool  `yaml:"lock"`
	StatementTimeout string `yaml:"statement_timeout"`
	LockTimeout      string `yaml:"lock_timeout"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		Driver:         DefaultDriver,
		Host:           DefaultHost,
		Table:          DefaultTable,
		CreateDatabase: true,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.Driver, raw.Driver)
	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.Host, raw.Host)
	setString(&cfg.User, raw.User)
	setString(&cfg.Password, raw.Password)
	setString(&cfg.Database, raw.Database)
	setString(&cfg.Table, raw.Table)
	setString(&cfg.PatchesDir, raw.PatchesDir)

	if raw.Port != 0 {
		cfg.Port = raw.Port
	}

	setBool(&cfg.SSL, raw.SSL)
	setBool(&cfg.CreateDatabase, raw.CreateDatabase)
	setBool(&cfg.Lock, raw.Lock)

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// MergeEnv overrides config fields from SQL_PATCH_* environment variables.
// Unparseable numbers, booleans and durations are ignored.
func MergeEnv(cfg *Config) {
	envString("SQL_PATCH_DRIVER", &cfg.Driver)
	envString("SQL_PATCH_DATABASE_URL", &cfg.DatabaseURL)
	envString("SQL_PATCH_HOST", &cfg.Host)
	envString("SQL_PATCH_USER", &cfg.User)
	envString("SQL_PATCH_PASSWORD", &cfg.Password)
	envString("SQL_PATCH_DATABASE", &cfg.Database)
	envString("SQL_PATCH_TABLE", &cfg.Table)
	envString("SQL_PATCH_PATCHES_DIR", &cfg.PatchesDir)

	if v := os.Getenv("SQL_PATCH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}

	envBool("SQL_PATCH_SSL", &cfg.SSL)
	envBool("SQL_PATCH_CREATE_DATABASE", &cfg.CreateDatabase)
	envBool("SQL_PATCH_LOCK", &cfg.Lock)

	if v := os.Getenv("SQL_PATCH_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	if v := os.Getenv("SQL_PATCH_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate reports configuration that cannot be used to connect.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.Database == "" {
		return ErrDatabaseRequired
	}

	return nil
}

// DatabaseName returns the target database: Database if set, otherwise the
// path of a URL-form DatabaseURL.
func (c *Config) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}

	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.Scheme == "" {
		return ""
	}

	return strings.TrimPrefix(u.Path, "/")
}

// ConnURL returns the connection string for database name on the configured
// driver. An empty name means the target database. DatabaseURL, when set,
// wins over the individual fields; only its database path is replaced.
// SQLite connection strings are file paths and are returned unchanged.
func (c *Config) ConnURL(name string) string {
	if isSQLite(c.Driver) {
		if c.DatabaseURL != "" {
			return c.DatabaseURL
		}

		return c.Database
	}

	if name == "" {
		name = c.DatabaseName()
	}

	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil || u.Scheme == "" {
			return c.DatabaseURL
		}

		u.Path = "/" + name

		return u.String()
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.port())),
		Path:   "/" + name,
	}

	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	q := url.Values{}

	if isClickHouse(c.Driver) {
		u.Scheme = "clickhouse"

		if c.SSL {
			q.Set("secure", "true")
		}
	} else if c.SSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}

	u.RawQuery = q.Encode()

	return u.String()
}

// MaintenanceURL returns the connection string for the server's default
// database, used to create the target database before connecting to it.
func (c *Config) MaintenanceURL() string {
	if isClickHouse(c.Driver) {
		return c.ConnURL("default")
	}

	return c.ConnURL("postgres")
}

func (c *Config) port() int {
	if c.Port != 0 {
		return c.Port
	}

	if isClickHouse(c.Driver) {
		return defaultClickHousePort
	}

	return defaultPostgresPort
}

func isSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return true
	}

	return false
}

func isClickHouse(driver string) bool {
	switch strings.ToLower(driver) {
	case "clickhouse", "ch":
		return true
	}

	return false
}

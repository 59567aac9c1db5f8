package cli

import (
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/source"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultConfigFile = "migrations.yaml"

const (
	LogColor      = "color"
	LogPlain      = "plain"
	LogStructured = "structured"
)

var ErrInvalidConfig = errors.New("invalid migrations configuration")

type (
	Config struct {
		DatabaseURL        string
		MigrationsFolder   string
		MigrationsTable    string
		ConnectionAttempts int
		Timeout            time.Duration

		Log      string
		PrintSQL bool
		Debug    bool
	}

	migrationsSection struct {
		DatabaseURL        string `yaml:"database_url"`
		LocalFolder        string `yaml:"local_folder"`
		MigrationsTable    string `yaml:"migrations_table"`
		ConnectionAttempts string `yaml:"connection_attempts"`
		Timeout            string `yaml:"timeout"`
	}

	configFile struct {
		Version    string            `yaml:"version"`
		Migrations migrationsSection `yaml:"migrations"`
	}
)

// LoadConfig reads the yaml configuration, values written as %%NAME%%
// are taken from the NAME environment variable
func LoadConfig(fs vfs.FileSystem, path string) (Config, error) {
	var cfg Config

	b, err := vfs.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "could not read migrations configuration file [%s]", path)
	}

	var cfgFile configFile
	if err := yaml.Unmarshal(b, &cfgFile); err != nil {
		return cfg, errors.Wrapf(err, "could not parse migrations configuration file [%s]", path)
	}

	cfg.DatabaseURL = fromEnv(cfgFile.Migrations.DatabaseURL)
	cfg.MigrationsFolder = fromEnv(cfgFile.Migrations.LocalFolder)
	cfg.MigrationsTable = fromEnv(cfgFile.Migrations.MigrationsTable)

	if attempts := fromEnv(cfgFile.Migrations.ConnectionAttempts); attempts != "" {
		if cfg.ConnectionAttempts, err = strconv.Atoi(attempts); err != nil {
			return cfg, errors.Wrapf(ErrInvalidConfig, "connection_attempts [%s] is not a number", attempts)
		}
	}

	if timeout := fromEnv(cfgFile.Migrations.Timeout); timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(timeout); err != nil {
			return cfg, errors.Wrapf(ErrInvalidConfig, "timeout [%s] is not a duration", timeout)
		}
	}

	return cfg, nil
}

// Override takes every non zero value of o
func (c Config) Override(o Config) Config {
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}

	if o.MigrationsFolder != "" {
		c.MigrationsFolder = o.MigrationsFolder
	}

	if o.MigrationsTable != "" {
		c.MigrationsTable = o.MigrationsTable
	}

	if o.ConnectionAttempts != 0 {
		c.ConnectionAttempts = o.ConnectionAttempts
	}

	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}

	if o.Log != "" {
		c.Log = o.Log
	}

	c.PrintSQL = c.PrintSQL || o.PrintSQL
	c.Debug = c.Debug || o.Debug

	return c
}

func (c Config) Validate() (Config, error) {
	if c.DatabaseURL == "" {
		return c, errors.Wrap(ErrInvalidConfig, "database url was not defined")
	}

	if c.MigrationsFolder == "" {
		c.MigrationsFolder = source.DefaultMigrationsFolder
	}

	if c.MigrationsTable == "" {
		c.MigrationsTable = database.DefaultMigrationsTable
	}

	if err := database.ValidateTableName(c.MigrationsTable); err != nil {
		return c, err
	}

	if c.ConnectionAttempts < 0 {
		return c, errors.Wrapf(ErrInvalidConfig, "connection attempts must not be negative, got %d", c.ConnectionAttempts)
	}

	switch c.Log {
	case "":
		c.Log = LogColor
	case LogColor, LogPlain, LogStructured:
	default:
		return c, errors.Wrapf(ErrInvalidConfig, "unknown log format [%s]", c.Log)
	}

	return c, nil
}

func fromEnv(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 4 && strings.HasPrefix(value, "%%") && strings.HasSuffix(value, "%%") {
		return os.Getenv(strings.Trim(value, "%"))
	}

	return value
}

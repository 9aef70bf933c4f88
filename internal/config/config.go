// Package config loads the client configuration: a YAML file, then
// SHINOMONTAZ_* environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHINOMONTAZ"

const appDir = "shinomontaz"

// ServerConfig locates the storage backend.
type ServerConfig struct {
	Addr     string        `yaml:"addr"`
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// DBConfig holds local state database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig bounds the in-memory document cache.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Config mirrors the config.yaml schema.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	DB     DBConfig     `yaml:"db"`
	Cache  CacheConfig  `yaml:"cache"`
}

// envOverrides are read from SHINOMONTAZ_SERVER_ADDR and friends. Unset
// variables leave the pointer nil.
type envOverrides struct {
	ServerAddr     *string        `split_words:"true"`
	ServerInsecure *bool          `split_words:"true"`
	ServerTimeout  *time.Duration `split_words:"true"`
	LogLevel       *string        `split_words:"true"`
	LogFile        *string        `split_words:"true"`
	LogJSON        *bool          `split_words:"true"`
	DBPath         *string        `split_words:"true"`
	CacheSize      *int           `split_words:"true"`
	CacheTTL       *time.Duration `split_words:"true"`
}

// Dir returns the per-user directory holding the config file and state.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the YAML config at path, applies environment overrides and
// defaults, and validates the result. An empty path means the default
// location, which may be absent.
func Load(path string) (Config, error) {
	var c Config
	optional := false
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return c, err
		}
		path, optional = p, true
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, err
	}

	if err := applyEnv(&c); err != nil {
		return Config{}, err
	}
	if err := applyDefaults(&c); err != nil {
		return Config{}, err
	}
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.Server.Addr = strings.TrimRight(strings.TrimSpace(c.Server.Addr), "/")
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	c.Log.File = strings.TrimSpace(c.Log.File)
	return c, nil
}

func applyEnv(c *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	setIf(&c.Server.Addr, env.ServerAddr)
	setIf(&c.Server.Insecure, env.ServerInsecure)
	setIf(&c.Server.Timeout, env.ServerTimeout)
	setIf(&c.Log.Level, env.LogLevel)
	setIf(&c.Log.File, env.LogFile)
	setIf(&c.Log.JSON, env.LogJSON)
	setIf(&c.DB.Path, env.DBPath)
	setIf(&c.Cache.Size, env.CacheSize)
	setIf(&c.Cache.TTL, env.CacheTTL)
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// applyDefaults populates zero-values. Local files live under Dir().
func applyDefaults(c *Config) error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 20 * time.Second
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 32
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.DB.Path == "" || c.Log.File == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if c.DB.Path == "" {
			c.DB.Path = filepath.Join(dir, "state.db")
		}
		if c.Log.File == "" {
			c.Log.File = filepath.Join(dir, "shinomontaz.log")
		}
	}
	return nil
}

// validate performs sanity checks. An empty server address is allowed
// here; commands that talk to the backend require it themselves.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.Server.Timeout < 0 {
		return errors.New("server.timeout is invalid")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size is invalid")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl is invalid")
	}
	if addr := strings.TrimSpace(c.Server.Addr); addr != "" {
		u, err := url.Parse(addr)
		if err != nil {
			return fmt.Errorf("server.addr is invalid: %w", err)
		}
		if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("server.addr must be http or https")
		}
	}
	return nil
}

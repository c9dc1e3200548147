// Package config loads npym settings from an optional TOML file and
// NPYM_* environment variables. Environment values win over the file;
// command-line flags are applied on top by the caller.
//
// Example npym.toml:
//
//	registry = "https://registry.npmjs.org"
//	destination = "dist"
//	pin = "exact"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[catalog]
//	backend = "postgres"
//	url = "postgres://npym@localhost/npym?sslmode=disable"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/npym/pkg/cache"
	"github.com/matzehuels/npym/pkg/catalog"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/events"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/wheel"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "npym.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Registry           string `toml:"registry"`
	PlatformTag        string `toml:"platform_tag"`
	Destination        string `toml:"destination"`
	Workers            int    `toml:"workers"`
	EmitWorkers        int    `toml:"emit_workers"`
	RuntimeRequirement string `toml:"runtime_requirement"`
	Pin                string `toml:"pin"`
	IncludeOptional    bool   `toml:"include_optional"`

	Cache   CacheConfig   `toml:"cache"`
	Catalog CatalogConfig `toml:"catalog"`
	Publish PublishConfig `toml:"publish"`
	Events  EventsConfig  `toml:"events"`
	Server  ServerConfig  `toml:"server"`
}

type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	TTL      string `toml:"ttl"`
	RedisURL string `toml:"redis_url"`
}

type CatalogConfig struct {
	Backend  string `toml:"backend"`
	URL      string `toml:"url"`
	Database string `toml:"database"`
}

// PublishConfig locates the object store wheels are uploaded to. Upload
// is disabled while Endpoint is empty.
type PublishConfig struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
	Prefix    string `toml:"prefix"`
}

// EventsConfig enables Kafka notifications when Brokers is set.
type EventsConfig struct {
	Brokers string `toml:"brokers"`
	Topic   string `toml:"topic"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry:           npm.DefaultRegistry,
		PlatformTag:        wheel.DefaultPlatformTag,
		Destination:        "dist",
		Workers:            resolve.DefaultWorkers,
		EmitWorkers:        4,
		RuntimeRequirement: wheel.DefaultRuntimeRequirement,
		Pin:                string(wheel.PinExact),
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     "1h",
		},
		Catalog: CatalogConfig{
			Backend:  catalog.BackendMemory,
			Database: catalog.DefaultMongoDatabase,
		},
		Events: EventsConfig{Topic: events.DefaultTopic},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/npym/npym.toml, falling back to
// ~/.config/npym/npym.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "npym", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "npym", FileName), nil
}

// Load reads path (or DefaultPath when empty), applies environment
// overrides and validates the result. A missing default file is not an
// error; a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if !explicit && errors.Is(err, errors.ErrCodeNotFound) {
				err = nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeNotFound, err, "config file %s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "config file %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Registry = getenv("NPYM_REGISTRY", c.Registry)
	c.PlatformTag = getenv("NPYM_PLATFORM_TAG", c.PlatformTag)
	c.Destination = getenv("NPYM_DESTINATION", c.Destination)
	c.Workers = getenvInt("NPYM_WORKERS", c.Workers)
	c.EmitWorkers = getenvInt("NPYM_EMIT_WORKERS", c.EmitWorkers)
	c.RuntimeRequirement = getenv("NPYM_RUNTIME_REQUIREMENT", c.RuntimeRequirement)
	c.Pin = getenv("NPYM_PIN", c.Pin)
	c.IncludeOptional = getenvBool("NPYM_INCLUDE_OPTIONAL", c.IncludeOptional)

	c.Cache.Backend = getenv("NPYM_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Dir = getenv("NPYM_CACHE_DIR", c.Cache.Dir)
	c.Cache.TTL = getenv("NPYM_CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisURL = getenv("NPYM_REDIS_URL", c.Cache.RedisURL)

	c.Catalog.Backend = getenv("NPYM_CATALOG_BACKEND", c.Catalog.Backend)
	c.Catalog.URL = getenv("NPYM_CATALOG_URL", c.Catalog.URL)
	c.Catalog.Database = getenv("NPYM_CATALOG_DATABASE", c.Catalog.Database)

	c.Publish.Endpoint = getenv("NPYM_PUBLISH_ENDPOINT", c.Publish.Endpoint)
	c.Publish.Bucket = getenv("NPYM_PUBLISH_BUCKET", c.Publish.Bucket)
	c.Publish.AccessKey = getenv("NPYM_PUBLISH_ACCESS_KEY", c.Publish.AccessKey)
	c.Publish.SecretKey = getenv("NPYM_PUBLISH_SECRET_KEY", c.Publish.SecretKey)
	c.Publish.Secure = getenvBool("NPYM_PUBLISH_SECURE", c.Publish.Secure)
	c.Publish.Prefix = getenv("NPYM_PUBLISH_PREFIX", c.Publish.Prefix)

	c.Events.Brokers = getenv("NPYM_KAFKA_BROKERS", c.Events.Brokers)
	c.Events.Topic = getenv("NPYM_EVENTS_TOPIC", c.Events.Topic)

	c.Server.Addr = getenv("NPYM_SERVER_ADDR", c.Server.Addr)
}

// Validate checks backends, worker counts, durations and URLs.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.Registry); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "registry")
	}
	if c.Workers <= 0 || c.EmitWorkers <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers and emit_workers must be positive")
	}
	if _, err := wheel.ParsePinMode(c.Pin); err != nil {
		return err
	}
	if c.PlatformTag == "" {
		return errors.New(errors.ErrCodeInvalidInput, "platform_tag cannot be empty")
	}

	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache backend redis requires redis_url")
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}

	switch c.Catalog.Backend {
	case catalog.BackendMemory:
	case catalog.BackendMongo, catalog.BackendPostgres:
		if c.Catalog.URL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "catalog backend %s requires url", c.Catalog.Backend)
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown catalog backend %q", c.Catalog.Backend)
	}

	if c.Publish.Endpoint != "" && c.Publish.Bucket == "" {
		return errors.New(errors.ErrCodeInvalidInput, "publish endpoint requires a bucket")
	}
	return nil
}

// CacheTTL parses Cache.TTL. An empty value means cache.TTLMetadata.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return cache.TTLMetadata, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid cache ttl %q", c.Cache.TTL)
	}
	return d, nil
}

package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Fetch    FetchConfig
	Cache    CacheConfig
	Compress CompressConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type ProviderConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
}

type FetchConfig struct {
	ChunkSize   int
	MaxAttempts int
}

type CacheConfig struct {
	TTL string
}

type CompressConfig struct {
	MaxAspects int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4040,
		},
		Provider: ProviderConfig{
			BaseURL:           "https://astrologer.p.rapidapi.com/api/v4",
			RequestsPerSecond: 2,
		},
		Fetch: FetchConfig{
			ChunkSize:   5,
			MaxAttempts: 3,
		},
		Cache: CacheConfig{
			TTL: "30m",
		},
		Compress: CompressConfig{
			MaxAspects: 40,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/woven/config.json, then applies WOVEN_* environment
// variable overrides. Secrets (the provider API key and the server token)
// never live in the file; they come from the environment only.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Provider.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: provider API key. Set it via environment variable WOVEN_PROVIDER_API_KEY")
	}
	if _, err := cfg.CacheTTL(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// CacheTTL parses the configured asset cache TTL.
func (c Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	return d, nil
}

package config

import (
	"testing"
	"time"
)

// mapBackend is an in-memory ConfigBackend test double.
type mapBackend struct {
	data map[string]any
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, _ := v.(int)
	return i, true, nil
}

func (m *mapBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *mapBackend) SetInt(key string, val int) error {
	m.data[key] = val
	return nil
}
func (m *mapBackend) Delete(key string) error { delete(m.data, key); return nil }

func emptyBackend() *mapBackend {
	return &mapBackend{data: make(map[string]any)}
}

// TestDefaults verifies default values when the backend is empty and only
// the required API key is provided.
func TestDefaults(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "test-key")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4040 {
		t.Errorf("Server.Port = %d, want 4040", cfg.Server.Port)
	}
	if cfg.Provider.BaseURL != "https://astrologer.p.rapidapi.com/api/v4" {
		t.Errorf("Provider.BaseURL = %q", cfg.Provider.BaseURL)
	}
	if cfg.Fetch.ChunkSize != 5 || cfg.Fetch.MaxAttempts != 3 {
		t.Errorf("Fetch = %+v, want chunk 5 / attempts 3", cfg.Fetch)
	}
	if cfg.Cache.TTL != "30m" {
		t.Errorf("Cache.TTL = %q, want 30m", cfg.Cache.TTL)
	}
	if cfg.Compress.MaxAspects != 40 {
		t.Errorf("Compress.MaxAspects = %d, want 40", cfg.Compress.MaxAspects)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		t.Fatalf("CacheTTL: %v", err)
	}
	if ttl != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", ttl)
	}
}

// TestBackendValues verifies backend values override defaults.
func TestBackendValues(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "test-key")

	b := emptyBackend()
	b.data["server.port"] = 8080
	b.data["fetch.chunk_size"] = 10
	b.data["cache.ttl"] = "5m"
	b.data["provider.requests_per_second"] = "4.5"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Fetch.ChunkSize != 10 {
		t.Errorf("Fetch.ChunkSize = %d, want 10", cfg.Fetch.ChunkSize)
	}
	if cfg.Cache.TTL != "5m" {
		t.Errorf("Cache.TTL = %q, want 5m", cfg.Cache.TTL)
	}
	if cfg.Provider.RequestsPerSecond != 4.5 {
		t.Errorf("RequestsPerSecond = %v, want 4.5", cfg.Provider.RequestsPerSecond)
	}
}

// TestEnvOverride verifies environment variables win over backend values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "test-key")
	t.Setenv("WOVEN_SERVER_PORT", "9090")
	t.Setenv("WOVEN_LOG_LEVEL", "debug")

	b := emptyBackend()
	b.data["server.port"] = 8080
	b.data["log.level"] = "warn"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

// TestMissingAPIKey verifies loading fails without the provider key.
func TestMissingAPIKey(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "")

	if _, err := loadWith(emptyBackend()); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

// TestInvalidCacheTTL verifies a malformed duration fails at load time.
func TestInvalidCacheTTL(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "test-key")
	t.Setenv("WOVEN_CACHE_TTL", "not-a-duration")

	if _, err := loadWith(emptyBackend()); err == nil {
		t.Fatal("expected error for invalid cache.ttl")
	}
}

// TestSecretsNeverReadFromBackend verifies a secret placed in the file is ignored.
func TestSecretsNeverReadFromBackend(t *testing.T) {
	t.Setenv("WOVEN_PROVIDER_API_KEY", "env-key")

	b := emptyBackend()
	b.data["provider.api_key"] = "file-key"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Provider.APIKey)
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "provider.api_key" || k == "server.token" {
			t.Errorf("secret key %q listed as settable", k)
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTasks is the task list forwarded upstream when a request omits tasks.
const DefaultTasks = "porn_moderation,suggestive_nudity_moderation,gore_moderation,drug_moderation,weapon_moderation"

// DefaultUpstreamEndpoint is the PicPurify analyse endpoint.
const DefaultUpstreamEndpoint = "https://www.picpurify.com/analyse/1.1"

// Config holds the full service configuration, loaded once at startup and
// passed by reference. Nothing reads configuration ambiently after Load.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Upstream UpstreamConfig `yaml:"upstream"`
	CORS     CORSConfig     `yaml:"cors"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig controls the backing store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// UpstreamConfig controls the PicPurify classifier client.
type UpstreamConfig struct {
	APIKey         string `yaml:"api-key"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout-seconds"`
	DefaultTasks   string `yaml:"default-tasks"`
}

// Timeout returns the upstream client timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// CORSConfig holds the cross-origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed-origins"`
}

// RedisConfig controls the optional account snapshot cache.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl-minutes"`
}

// TTL returns the cache entry lifetime.
func (r RedisConfig) TTL() time.Duration {
	if r.TTLMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(r.TTLMinutes) * time.Minute
}

// LogConfig controls logging output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Load reads configuration from an optional YAML file, applies environment
// overrides, and validates required values. An empty path skips the file and
// relies on environment variables alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables take precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("NOVAMOD_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("NOVAMOD_DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("PICPURIFY_API_KEY")); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PICPURIFY_ENDPOINT")); v != "" {
		cfg.Upstream.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("NOVAMOD_ALLOWED_ORIGINS")); v != "" {
		cfg.CORS.AllowedOrigins = splitOrigins(v)
	}
	if v := strings.TrimSpace(os.Getenv("NOVAMOD_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Upstream.Endpoint) == "" {
		cfg.Upstream.Endpoint = DefaultUpstreamEndpoint
	}
	if strings.TrimSpace(cfg.Upstream.DefaultTasks) == "" {
		cfg.Upstream.DefaultTasks = DefaultTasks
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}

// Validate reports missing required configuration. Required values are never
// silently defaulted.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.DSN) == "" {
		missing = append(missing, "database.dsn")
	}
	if strings.TrimSpace(c.Upstream.APIKey) == "" {
		missing = append(missing, "upstream.api-key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	return nil
}

// splitOrigins parses a comma-separated origin list, dropping empty entries.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

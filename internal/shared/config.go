package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	MinWorkers     = 5
	MaxWorkers     = 8
	MinTimeoutSecs = 5
	MaxTimeoutSecs = 30
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Store       StoreConfig       `toml:"store"`
	Search      SearchConfig      `toml:"search"`
	Ollama      OllamaConfig      `toml:"ollama"`
	Sessions    SessionsConfig    `toml:"sessions"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
	Workers     WorkersConfig     `toml:"workers"`
	Log         LogConfig         `toml:"log"`
	Credentials CredentialsConfig `toml:"credentials"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                string   `toml:"host"`
	Port                int      `toml:"port"`
	APIKey              string   `toml:"api_key"`
	CORSOrigins         []string `toml:"cors_origins"`
	ReadTimeoutSeconds  int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig locates the playlist document.
type StoreConfig struct {
	Path   string `toml:"path"`
	Strict bool   `toml:"strict"`
}

// SearchConfig selects and tunes the search provider.
type SearchConfig struct {
	Provider              string  `toml:"provider"`
	TimeoutSeconds        int     `toml:"timeout_seconds"`
	RateLimit             float64 `toml:"rate_limit"`
	DefaultLimit          int     `toml:"default_limit"`
	HeadersPath           string  `toml:"headers_path"`
	SuggestURL            string  `toml:"suggest_url"`
	SuggestTimeoutSeconds int     `toml:"suggest_timeout_seconds"`
}

// Timeout returns the provider timeout as a [time.Duration].
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// SuggestTimeout returns the suggestion client timeout as a [time.Duration].
func (s SearchConfig) SuggestTimeout() time.Duration {
	return time.Duration(s.SuggestTimeoutSeconds) * time.Second
}

// OllamaConfig points at the language model runtime.
type OllamaConfig struct {
	Host           string `toml:"host"`
	ChatModel      string `toml:"chat_model"`
	VisionModel    string `toml:"vision_model"`
	RecommendModel string `toml:"recommend_model"`
	ShuffleModel   string `toml:"shuffle_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the completion timeout as a [time.Duration].
func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// SessionsConfig bounds the in-memory chat logs.
type SessionsConfig struct {
	MaxSessions int `toml:"max_sessions"`
	MaxBytes    int `toml:"max_bytes"`
	IdleMinutes int `toml:"idle_minutes"`
}

// IdleTTL returns the session idle expiry as a [time.Duration].
func (s SessionsConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Backend    string `toml:"backend"`
	TTLMinutes int    `toml:"ttl_minutes"`
	MaxEntries int    `toml:"max_entries"`
	RedisURL   string `toml:"redis_url"`
}

// TTL returns the cache entry lifetime as a [time.Duration].
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// WorkersConfig sizes the fan-out pools.
type WorkersConfig struct {
	Recommend int `toml:"recommend"`
	Shuffle   int `toml:"shuffle"`
	Catalog   int `toml:"catalog"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// Configured reports whether both client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// YouTubeConfig contains YouTube Data API credentials.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set are not overwritten.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides configuration values with environment variables when they are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("HYDE_API_KEY"); ok {
		c.Server.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT %q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Ollama.Host = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.Credentials.YouTube.APIKey = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("HYDE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	return nil
}

// Validate checks the configuration, clamping worker counts into range.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store path is required", ErrInvalidConfig)
	}

	switch c.Search.Provider {
	case "scrape":
	case "data_api":
		if c.Credentials.YouTube.APIKey == "" {
			return fmt.Errorf("%w: data_api provider requires credentials.youtube.api_key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown search provider %q", ErrInvalidConfig, c.Search.Provider)
	}

	switch c.Cache.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Cache.Enabled && c.Cache.RedisURL == "" {
			return fmt.Errorf("%w: redis cache backend requires cache.redis_url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	timeouts := map[string]int{
		"search.timeout_seconds":         c.Search.TimeoutSeconds,
		"search.suggest_timeout_seconds": c.Search.SuggestTimeoutSeconds,
		"ollama.timeout_seconds":         c.Ollama.TimeoutSeconds,
	}
	for name, secs := range timeouts {
		if secs < MinTimeoutSecs || secs > MaxTimeoutSecs {
			return fmt.Errorf("%w: %s must be between %d and %d, got %d",
				ErrInvalidConfig, name, MinTimeoutSecs, MaxTimeoutSecs, secs)
		}
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 5
	}
	if c.Search.RateLimit <= 0 {
		return fmt.Errorf("%w: search.rate_limit must be positive", ErrInvalidConfig)
	}

	c.Workers.Recommend = ClampWorkers(c.Workers.Recommend)
	c.Workers.Shuffle = ClampWorkers(c.Workers.Shuffle)
	c.Workers.Catalog = ClampWorkers(c.Workers.Catalog)

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ClampWorkers bounds a worker count to [MinWorkers, MaxWorkers].
func ClampWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

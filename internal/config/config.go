package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/geoword/config.yaml"

// Config holds all geoword configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Playback PlaybackConfig `yaml:"playback"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Render   RenderConfig   `yaml:"render"`
}

// LLMConfig selects the model backend and its credentials.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"GEOWORD_LLM_PROVIDER"`
	Model       string        `yaml:"model" env:"GEOWORD_LLM_MODEL"`
	APIKey      string        `yaml:"api_key" env:"GEOWORD_LLM_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"GEOWORD_LLM_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"GEOWORD_LLM_TIMEOUT"`
	FixturesDir string        `yaml:"fixtures_dir" env:"GEOWORD_LLM_FIXTURES_DIR"`
}

// PlaybackConfig controls autoplay.
type PlaybackConfig struct {
	Interval    time.Duration `yaml:"interval" env:"GEOWORD_PLAYBACK_INTERVAL"`
	DefaultWord string        `yaml:"default_word" env:"GEOWORD_DEFAULT_WORD"`
}

// StorageConfig locates the trace history and sets its lifetimes.
type StorageConfig struct {
	Path          string `yaml:"path" env:"GEOWORD_STORAGE_PATH"`
	SQLiteFile    string `yaml:"sqlite_file"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" env:"GEOWORD_CACHE_TTL_HOURS"`
	RetentionDays int    `yaml:"retention_days"`
}

// ServerConfig is used by the serve command.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"GEOWORD_SERVER_HOST"`
	Port            int           `yaml:"port" env:"GEOWORD_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SearchPerMinute int           `yaml:"search_per_minute" env:"GEOWORD_SEARCH_PER_MINUTE"`
}

// LoggingConfig configures the slog logger and optional log file.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"GEOWORD_LOG_LEVEL"`
	Format     string `yaml:"format" env:"GEOWORD_LOG_FORMAT"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// RenderConfig sets SVG output size and colors.
type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Primary    string `yaml:"primary_color"`
	Node       string `yaml:"node_color"`
	Background string `yaml:"background_color"`
}

// providerKeys are the vendor variables honoured when no explicit
// GEOWORD_LLM_API_KEY is set.
type providerKeys struct {
	Gemini    string `env:"GEMINI_API_KEY"`
	Anthropic string `env:"ANTHROPIC_API_KEY"`
}

// Load reads a YAML config file at path, merges it over the defaults and
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave
// the current value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if cfg.LLM.APIKey != "" {
		return nil
	}

	var keys providerKeys
	if err := env.Parse(&keys); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	switch cfg.LLM.Provider {
	case ProviderGemini:
		cfg.LLM.APIKey = keys.Gemini
	case ProviderAnthropic:
		cfg.LLM.APIKey = keys.Anthropic
	}
	return nil
}

// Provider names accepted in llm.provider.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderFile      = "file"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderGemini, ProviderAnthropic:
		if strings.TrimSpace(c.LLM.Model) == "" {
			errs = append(errs, errors.New("llm.model is required"))
		}
	case ProviderFile:
		if strings.TrimSpace(c.LLM.FixturesDir) == "" {
			errs = append(errs, errors.New("llm.fixtures_dir is required for the file provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of gemini, anthropic, file", c.LLM.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.Playback.Interval <= 0 {
		errs = append(errs, errors.New("playback.interval must be positive"))
	}
	if strings.TrimSpace(c.Playback.DefaultWord) == "" {
		errs = append(errs, errors.New("playback.default_word is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.SearchPerMinute < 0 {
		errs = append(errs, errors.New("server.search_per_minute must not be negative"))
	}
	if c.Storage.CacheTTLHours < 0 {
		errs = append(errs, errors.New("storage.cache_ttl_hours must not be negative"))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of json, text", c.Logging.Format))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, errors.New("render.width and render.height must be positive"))
	}

	return errors.Join(errs...)
}

// DBPath returns the absolute history database path.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath resolves logging.file relative to the storage directory. Empty
// means log to stderr.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	p, err := expandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// CacheTTL is how long a stored trace answers a repeated search.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Storage.CacheTTLHours) * time.Hour
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path, writing the defaults
// there first if the file does not exist.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from path. If the file does not exist,
// it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		if err := ApplyEnv(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Load(path)
}

package config

import "time"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Model:    "gemini-3-flash-preview",
			Timeout:  60 * time.Second,
		},
		Playback: PlaybackConfig{
			Interval:    2500 * time.Millisecond,
			DefaultWord: "Algorithm",
		},
		Storage: StorageConfig{
			Path:          "~/.config/geoword",
			SQLiteFile:    "geoword.db",
			CacheTTLHours: 24 * 7,
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8722,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			SearchPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Render: RenderConfig{
			Width:      960,
			Height:     540,
			Primary:    "#7448C8",
			Node:       "#FFFFFF",
			Background: "#0b0e14",
		},
	}
}

// Package fetcher turns a word into a validated WordEvolution by asking a
// generative model backend.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/runnerr0/geoword/internal/config"
	"github.com/runnerr0/geoword/internal/etymology"
)

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Fetcher produces the evolution of one word. Implementations reject empty
// or schema-violating responses; a returned evolution is always valid and
// its timeline sorted.
type Fetcher interface {
	FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error)
}

// Named is implemented by fetchers that can report which backend answered.
type Named interface {
	Name() string
}

// New builds the fetcher selected by cfg.Provider. The API key comes from
// cfg; nothing here reads the environment.
func New(cfg config.LLMConfig, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, errors.New("gemini: api key required (llm.api_key or GEMINI_API_KEY)")
		}
		return NewGemini(GeminiOptions{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger), nil
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("anthropic: api key required (llm.api_key or ANTHROPIC_API_KEY)")
		}
		return NewAnthropic(AnthropicOptions{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger), nil
	case config.ProviderFile:
		return NewFile(cfg.FixturesDir), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// decodeText cleans a model reply and decodes it. Markdown fences and any
// chatter around the outermost object are dropped first.
func decodeText(text string) (*etymology.WordEvolution, error) {
	text = trimFences(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if obj, err := extractJSON(text); err == nil {
		text = obj
	}
	return etymology.Decode([]byte(text))
}

func trimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSON returns the span from the first { to the last }.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}

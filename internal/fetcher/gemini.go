package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/runnerr0/geoword/internal/etymology"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiOptions configures the Gemini REST backend.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string // empty means the public endpoint
	Timeout time.Duration
}

// Gemini calls generateContent with a JSON response schema.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	log        *slog.Logger
}

// NewGemini creates a Gemini fetcher.
func NewGemini(opts GeminiOptions, logger *slog.Logger) *Gemini {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: 500 * time.Millisecond,
		log:        logger.With("adapter", "gemini"),
	}
}

// Name implements Named.
func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string         `json:"responseMimeType"`
		ResponseSchema   map[string]any `json:"responseSchema"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// FetchWordEvolution implements Fetcher.
func (g *Gemini) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	var payload geminiRequest
	payload.Contents = []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(word)}}}}
	payload.GenerationConfig.ResponseMimeType = "application/json"
	payload.GenerationConfig.ResponseSchema = responseSchema

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	g.log.DebugContext(ctx, "gemini request", slog.String("word", word), slog.String("model", g.model))

	resp, err := g.doWithRetry(ctx, reqURL, body, word)
	if err != nil {
		g.log.ErrorContext(ctx, "gemini request failed", slog.String("word", word), slog.String("error", err.Error()))
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, snippet(raw))
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("gemini: decode envelope: %w", err)
	}
	if gr.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: prompt blocked: %s", gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	evo, err := decodeText(text.String())
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	g.log.DebugContext(ctx, "gemini response",
		slog.String("word", word),
		slog.Int("stages", len(evo.Timeline)),
		slog.String("finish_reason", gr.Candidates[0].FinishReason),
	)
	return evo, nil
}

// doWithRetry posts body once more after a network error or a 5xx.
func (g *Gemini) doWithRetry(ctx context.Context, reqURL string, body []byte, word string) (*http.Response, error) {
	do := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)
		return g.httpClient.Do(req)
	}

	resp, err := do()
	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	g.log.WarnContext(ctx, "gemini retry", slog.String("word", word), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.retryDelay):
	}
	return do()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/runnerr0/geoword/internal/etymology"
)

// AnthropicOptions configures the Claude backend.
type AnthropicOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Anthropic asks Claude for the evolution and extracts the JSON object
// from its reply.
type Anthropic struct {
	client anthropic.Client
	model  string
	log    *slog.Logger
}

// NewAnthropic creates an Anthropic fetcher. SDK retries are disabled; a
// failed search is retried by the user.
func NewAnthropic(opts AnthropicOptions, logger *slog.Logger) *Anthropic {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}
	return &Anthropic{
		client: anthropic.NewClient(reqOpts...),
		model:  opts.Model,
		log:    logger.With("adapter", "anthropic"),
	}
}

// Name implements Named.
func (a *Anthropic) Name() string { return "anthropic" }

// FetchWordEvolution implements Fetcher.
func (a *Anthropic) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	a.log.DebugContext(ctx, "anthropic request", slog.String("word", word), slog.String("model", a.model))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: "You are a historical linguist. " + schemaInstructions},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(word))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: messages for %q: %w", word, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	evo, err := decodeText(text.String())
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	a.log.DebugContext(ctx, "anthropic response", slog.String("word", word), slog.Int("stages", len(evo.Timeline)))
	return evo, nil
}

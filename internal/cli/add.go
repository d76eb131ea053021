package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for add command")
	}

	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.store, time.Now())
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store storage.Store, now time.Time) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for add command")
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading trace file: %w", err)
	}

	evo, err := etymology.Decode(data)
	if err != nil {
		return fmt.Errorf("invalid trace file %s: %w", c.File, err)
	}

	word := strings.TrimSpace(c.Word)
	if word == "" {
		word = evo.ModernWord
	}
	provider := c.Provider
	if provider == "" {
		provider = "import"
	}

	trace := &storage.Trace{
		Word:      word,
		Provider:  provider,
		FetchedAt: now,
		Evolution: *evo,
	}
	if err := store.SaveTrace(context.Background(), trace); err != nil {
		return fmt.Errorf("storing trace: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"id":     trace.ID,
			"word":   trace.Word,
			"stages": len(evo.Timeline),
			"ts":     trace.FetchedAt.Format(time.RFC3339),
		})
	}

	fmt.Printf("Added trace %s (%s)\n", trace.ID, trace.FetchedAt.Format(time.RFC3339))
	fmt.Printf("  Word: %s\n", trace.Word)
	fmt.Printf("  Modern: %s\n", evo.ModernWord)
	fmt.Printf("  Stages: %d\n", len(evo.Timeline))

	return nil
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/geoword/internal/storage"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.store, time.Now())
}

// executeWithStore runs the search against a provided store (for testing).
func (c *HistoryCommand) executeWithStore(store storage.Store, now time.Time) error {
	query := strings.TrimSpace(strings.Join(c.Args.Query, " "))

	var since time.Time
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		since = now.Add(-dur)
	}

	var until time.Time
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		until = now.Add(-dur)
	}

	sq := storage.SearchQuery{
		Query:    query,
		Language: c.Language,
		Since:    since,
		Until:    until,
		Limit:    c.Limit,
		Offset:   c.Offset,
	}

	results, err := store.SearchTraces(context.Background(), sq)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(query, results)
	}
	return c.printHuman(query, results)
}

func (c *HistoryCommand) printHuman(query string, results []storage.Trace) error {
	scope := "since " + c.Since
	if c.Since == "" {
		scope = "all time"
	}

	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No traces found for %q (%s)\n", query, scope)
		} else {
			fmt.Printf("No traces found (%s)\n", scope)
		}
		return nil
	}

	noun := plural(len(results), "trace", "traces")
	if query != "" {
		fmt.Printf("Found %d %s for %q (%s)\n\n", len(results), noun, query, scope)
	} else {
		fmt.Printf("Found %d %s (%s)\n\n", len(results), noun, scope)
	}

	for i, t := range results {
		title := t.Evolution.ModernWord
		if title == "" {
			title = t.Word
		}
		fmt.Printf("%d. %s", i+1+c.Offset, title)
		if t.Evolution.OriginWord != "" {
			fmt.Printf(" ← %s", t.Evolution.OriginWord)
		}
		fmt.Println()

		fmt.Printf("   %s\n", t.ID)

		meta := t.FetchedAt.Local().Format("2006-01-02 15:04")
		meta += fmt.Sprintf(" · %d %s", t.StageCount, plural(t.StageCount, "stage", "stages"))
		if t.Provider != "" {
			meta += " · " + t.Provider
		}
		fmt.Printf("   %s\n", meta)

		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type historyResult struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	ModernWord string `json:"modernWord"`
	OriginWord string `json:"originWord"`
	Provider   string `json:"provider"`
	StageCount int    `json:"stageCount"`
	FetchedAt  string `json:"fetchedAt"`
}

type historyOutput struct {
	Count   int             `json:"count"`
	Query   string          `json:"query"`
	Results []historyResult `json:"results"`
}

func (c *HistoryCommand) printJSON(query string, results []storage.Trace) error {
	out := historyOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]historyResult, len(results)),
	}

	for i, t := range results {
		out.Results[i] = historyResult{
			ID:         t.ID,
			Word:       t.Word,
			ModernWord: t.Evolution.ModernWord,
			OriginWord: t.Evolution.OriginWord,
			Provider:   t.Provider,
			StageCount: t.StageCount,
			FetchedAt:  t.FetchedAt.UTC().Format(time.RFC3339),
		}
	}

	return printJSON(out)
}

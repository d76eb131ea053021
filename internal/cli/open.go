package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/logging"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/storage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}

	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWith(context.Background(), a, os.Stdout)
}

func (c *OpenCommand) executeWith(ctx context.Context, a *app, out io.Writer) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}

	trace, err := a.store.GetTrace(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("trace not found: %s", c.ID)
	}

	// JSON output (--json global flag)
	if c.globals != nil && c.globals.JSON {
		return c.outputJSON(trace)
	}

	switch c.Format {
	case "json":
		return c.outputJSON(trace)
	case "md":
		return render.WriteMarkdown(out, trace.Evolution)
	case "svg":
		snap, err := stillFrame(trace.Evolution.Timeline, c.Year)
		if err != nil {
			return err
		}
		return render.Map(out, snap, render.OptionsFromConfig(a.cfg.Render))
	case "full", "":
		return c.outputFull(out, trace)
	default:
		return fmt.Errorf("unknown format %q (use full, md, json or svg)", c.Format)
	}
}

func (c *OpenCommand) outputFull(out io.Writer, trace *storage.Trace) error {
	fmt.Fprintln(out, trace.ID)
	fmt.Fprintf(out, "Word:      %s\n", trace.Word)
	fmt.Fprintf(out, "Fetched:   %s\n", trace.FetchedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Provider:  %s\n", trace.Provider)
	fmt.Fprintf(out, "Stages:    %d\n", trace.StageCount)
	fmt.Fprintln(out)

	snap, err := stillFrame(trace.Evolution.Timeline, c.Year)
	if err != nil {
		return err
	}
	return render.WriteText(out, render.NewPanel(&trace.Evolution, snap))
}

type openJSON struct {
	ID        string                  `json:"id"`
	Word      string                  `json:"word"`
	Provider  string                  `json:"provider"`
	FetchedAt string                  `json:"fetchedAt"`
	Evolution etymology.WordEvolution `json:"evolution"`
}

func (c *OpenCommand) outputJSON(trace *storage.Trace) error {
	return printJSON(openJSON{
		ID:        trace.ID,
		Word:      trace.Word,
		Provider:  trace.Provider,
		FetchedAt: trace.FetchedAt.UTC().Format(time.RFC3339),
		Evolution: trace.Evolution,
	})
}

// stillFrame loads tl into a paused controller positioned at year, or at
// the last stage, and returns its snapshot.
func stillFrame(tl etymology.Timeline, year string) (playback.Snapshot, error) {
	ctrl := playback.NewController(clockwork.NewRealClock(), time.Second, logging.Discard())
	defer ctrl.Close()

	ctrl.OnTimelineReplaced(tl)
	if err := seekYear(ctrl, year); err != nil {
		return playback.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

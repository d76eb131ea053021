package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/session"
)

// Execute implements the go-flags Commander interface for RenderCommand.
func (c *RenderCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWith(context.Background(), a, os.Stdout)
}

func (c *RenderCommand) executeWith(ctx context.Context, a *app, stdout io.Writer) error {
	word := strings.TrimSpace(strings.Join(c.Args.Word, " "))
	switch {
	case c.ID == "" && word == "":
		return errors.New("render needs --id or a word")
	case c.ID != "" && word != "":
		return errors.New("render takes --id or a word, not both")
	}

	snap, err := c.frame(ctx, a, word)
	if err != nil {
		return err
	}

	out := stdout
	if c.Out != "" {
		if err := os.MkdirAll(filepath.Dir(c.Out), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		f, err := os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.Out, err)
		}
		defer f.Close()
		out = f
	}

	draw := render.Map
	if c.Strip {
		draw = render.TimelineStrip
	}
	if err := draw(out, snap, render.OptionsFromConfig(a.cfg.Render)); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if c.Out != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", c.Out)
	}
	return nil
}

func (c *RenderCommand) frame(ctx context.Context, a *app, word string) (playback.Snapshot, error) {
	if c.ID != "" {
		trace, err := a.store.GetTrace(ctx, c.ID)
		if err != nil {
			return playback.Snapshot{}, fmt.Errorf("trace not found: %s", c.ID)
		}
		return stillFrame(trace.Evolution.Timeline, c.Year)
	}

	sess, ctrl, err := a.player(false, 0)
	if err != nil {
		return playback.Snapshot{}, err
	}
	defer ctrl.Close()

	if _, err := sess.Search(ctx, word); err != nil {
		return playback.Snapshot{}, fmt.Errorf("%s (%w)", session.ErrorMessage, err)
	}
	if err := seekYear(ctrl, c.Year); err != nil {
		return playback.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

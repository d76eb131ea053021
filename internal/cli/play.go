package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/runnerr0/geoword/internal/session"
	"github.com/runnerr0/geoword/internal/tui"
)

// Execute implements the go-flags Commander interface for PlayCommand.
func (c *PlayCommand) Execute(args []string) error {
	a, err := setup(c.globals, !c.Headless)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.executeWith(ctx, a, os.Stdout)
}

func (c *PlayCommand) executeWith(ctx context.Context, a *app, out io.Writer) error {
	var interval time.Duration
	if c.Interval != "" {
		d, err := time.ParseDuration(c.Interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid --interval %q", c.Interval)
		}
		interval = d
	}

	sess, ctrl, err := a.player(false, interval)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	word := strings.TrimSpace(strings.Join(c.Args.Word, " "))
	if word == "" && c.ID == "" {
		word = sess.DefaultWord()
	}

	if !c.Headless {
		if err := c.load(ctx, a, sess, word, true); err != nil {
			return err
		}
		err := tui.Run(ctx, sess, ctrl)
		sess.Wait()
		return err
	}

	if err := c.load(ctx, a, sess, word, false); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", sess.State().Evolution.ModernWord)
	if err := tui.Headless(ctx, out, ctrl); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// load installs the trace named by --id, or searches word. In the
// background mode the player shows the loading state itself.
func (c *PlayCommand) load(ctx context.Context, a *app, sess *session.Session, word string, background bool) error {
	if c.ID != "" {
		trace, err := a.store.GetTrace(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("trace not found: %s", c.ID)
		}
		sess.Load(trace)
		return nil
	}
	if background {
		sess.Begin(ctx, word)
		return nil
	}
	if _, err := sess.Search(ctx, word); err != nil {
		return fmt.Errorf("%s (%w)", session.ErrorMessage, err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.executeWith(ctx, a)
}

func (c *ServeCommand) executeWith(ctx context.Context, a *app) error {
	cfg := a.cfg.Server
	if c.Host != "" {
		cfg.Host = c.Host
	}
	if c.Port != 0 {
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("invalid --port %d", c.Port)
		}
		cfg.Port = c.Port
	}

	sess, ctrl, err := a.player(false, 0)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	srv := server.New(sess, ctrl, a.store, server.Options{
		Version:         c.version,
		Render:          render.OptionsFromConfig(a.cfg.Render),
		SearchTimeout:   a.cfg.LLM.Timeout,
		SearchPerMinute: cfg.SearchPerMinute,
	}, a.logger)
	defer srv.Close()

	// Clients connecting early see the default word loading.
	sess.Begin(ctx, sess.DefaultWord())

	return srv.ListenAndServe(ctx, cfg)
}

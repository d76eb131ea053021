package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/geoword/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	retention := time.Duration(a.cfg.Storage.RetentionDays) * 24 * time.Hour
	return c.executeWithStore(a.store, retention, time.Now())
}

// executeWithStore prunes traces fetched before now minus the retention
// period. --older-than overrides retention.
func (c *PruneCommand) executeWithStore(store storage.Store, retention time.Duration, now time.Time) error {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		retention = d
	}
	if retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}

	cutoff := now.Add(-retention)
	ctx := context.Background()

	var (
		n   int64
		err error
	)
	if c.DryRun {
		n, err = store.CountExpired(ctx, cutoff)
	} else {
		n, err = store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"dry_run":   c.DryRun,
			"pruned":    n,
			"cutoff":    cutoff.UTC().Format(time.RFC3339),
			"retention": formatDurationHuman(retention),
		})
	}

	noun := plural(int(n), "trace", "traces")
	if c.DryRun {
		fmt.Printf("Would prune %s %s older than %s (before %s)\n", formatNumber(n), noun, formatDurationHuman(retention), cutoff.Local().Format("2006-01-02"))
		return nil
	}
	fmt.Printf("Pruned %s %s older than %s\n", formatNumber(n), noun, formatDurationHuman(retention))
	return nil
}

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/geoword/internal/config"
	"github.com/runnerr0/geoword/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string              `json:"version"`
	DatabasePath      string              `json:"database_path"`
	DatabaseSizeBytes int64               `json:"database_size_bytes"`
	TotalTraces       int64               `json:"total_traces"`
	TotalStages       int64               `json:"total_stages"`
	OldestTrace       string              `json:"oldest_trace,omitempty"`
	NewestTrace       string              `json:"newest_trace,omitempty"`
	RetentionDays     int                 `json:"retention_days"`
	CacheTTLHours     int                 `json:"cache_ttl_hours"`
	Provider          string              `json:"provider"`
	Model             string              `json:"model"`
	TopLanguages      []languageCountJSON `json:"top_languages"`
}

type languageCountJSON struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.store, a.db, a.dbPath, a.cfg)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(store storage.Store, db *sql.DB, dbPath string, cfg *config.Config) error {
	stats, err := store.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbSize := getDatabaseSize(db, dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, cfg, dbPath, dbSize)
	}
	return c.printStatusHuman(stats, cfg, dbPath, dbSize)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64) error {
	fmt.Println("geoword status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Traces:        %s\n", formatNumber(stats.TotalTraces))

	if stats.TotalTraces > 0 {
		avg := float64(stats.TotalStages) / float64(stats.TotalTraces)
		fmt.Printf("Stages:        %s (%.1f per trace)\n", formatNumber(stats.TotalStages), avg)
		fmt.Printf("Oldest:        %s\n", stats.OldestTrace.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestTrace.Local().Format("2006-01-02"))
	} else {
		fmt.Printf("Stages:        %s\n", formatNumber(stats.TotalStages))
	}

	fmt.Printf("Retention:     %d days\n", cfg.Storage.RetentionDays)
	fmt.Printf("Cache TTL:     %s\n", formatDurationHuman(cfg.CacheTTL()))

	if len(stats.TopLanguages) > 0 {
		fmt.Println()
		fmt.Println("Top Languages:")
		for _, l := range stats.TopLanguages {
			fmt.Printf("  %-20s %s\n", l.Language, formatNumber(l.Count))
		}
	}

	fmt.Println()
	fmt.Printf("Provider:      %s", cfg.LLM.Provider)
	if cfg.LLM.Model != "" && cfg.LLM.Provider != config.ProviderFile {
		fmt.Printf(" (%s)", cfg.LLM.Model)
	}
	fmt.Println()

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalTraces:       stats.TotalTraces,
		TotalStages:       stats.TotalStages,
		RetentionDays:     cfg.Storage.RetentionDays,
		CacheTTLHours:     cfg.Storage.CacheTTLHours,
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		TopLanguages:      make([]languageCountJSON, len(stats.TopLanguages)),
	}

	if stats.TotalTraces > 0 {
		out.OldestTrace = stats.OldestTrace.UTC().Format(time.RFC3339)
		out.NewestTrace = stats.NewestTrace.UTC().Format(time.RFC3339)
	}

	for i, l := range stats.TopLanguages {
		out.TopLanguages[i] = languageCountJSON{Language: l.Language, Count: l.Count}
	}

	return printJSON(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

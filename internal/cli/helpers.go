package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/geoword/internal/config"
	"github.com/runnerr0/geoword/internal/fetcher"
	"github.com/runnerr0/geoword/internal/logging"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/session"
	"github.com/runnerr0/geoword/internal/storage"
)

// app carries what a subcommand needs once flags are parsed. Tests build
// one by hand around an in-memory store.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStore
	db      *sql.DB
	dbPath  string
	logger  *slog.Logger
	clock   clockwork.Clock
	fetcher fetcher.Fetcher // nil means build one from cfg.LLM

	closers []io.Closer
}

// Close releases the store, the database and the log file.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	for _, c := range a.closers {
		c.Close()
	}
}

// setup loads config, opens the logger and the history database. With
// logToFile set, logs never go to the terminal: the full-screen player
// owns it.
func setup(globals *GlobalFlags, logToFile bool) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, clock: clockwork.NewRealClock()}

	logger, closer, err := newLogger(globals, cfg, logToFile)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	a.dbPath, err = resolveDBPath(globals, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store, a.db, err = openStore(a.dbPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadConfig reads --config, or the default config file (creating it on
// first run), and validates the result.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globals != nil && globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath determines the SQLite database file path.
// Priority: --db-path flag > config file.
func resolveDBPath(globals *GlobalFlags, cfg *config.Config) (string, error) {
	if globals != nil && globals.DBPath != "" {
		return globals.DBPath, nil
	}
	return cfg.DBPath()
}

// openStore opens the database at dbPath, runs migrations,
// and returns a ready-to-use store and the underlying *sql.DB.
func openStore(dbPath string) (*storage.SQLiteStore, *sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

func newLogger(globals *GlobalFlags, cfg *config.Config, logToFile bool) (*slog.Logger, io.Closer, error) {
	lc := cfg.Logging
	if globals != nil && globals.Verbose {
		lc.Level = "debug"
	}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if path == "" && logToFile {
		dir, err := cfg.DBPath()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(filepath.Dir(dir), "geoword.log")
	}
	return logging.NewLogger(lc, path)
}

// tracer wraps the configured backend with the history cache. noCache
// disables lookups but still stores the result.
func (a *app) tracer(noCache bool) (*fetcher.Caching, error) {
	next := a.fetcher
	if next == nil {
		f, err := fetcher.New(a.cfg.LLM, a.logger)
		if err != nil {
			return nil, err
		}
		next = f
	}

	ttl := a.cfg.CacheTTL()
	if noCache {
		ttl = 0
	}
	return fetcher.NewCaching(next, a.store, ttl, a.clock, a.logger), nil
}

// player builds a controller and a session around it. The caller closes
// the controller.
func (a *app) player(noCache bool, interval time.Duration) (*session.Session, *playback.Controller, error) {
	f, err := a.tracer(noCache)
	if err != nil {
		return nil, nil, err
	}
	if interval <= 0 {
		interval = a.cfg.Playback.Interval
	}
	ctrl := playback.NewController(a.clock, interval, a.logger)
	return session.New(f, ctrl, a.cfg.Playback.DefaultWord, a.logger), ctrl, nil
}

// seekYear moves ctrl to the stage nearest year, or to the last stage when
// year is empty.
func seekYear(ctrl *playback.Controller, year string) error {
	snap := ctrl.Snapshot()
	if snap.Empty() {
		return nil
	}
	if year == "" {
		ctrl.Seek(snap.Years[len(snap.Years)-1])
		return nil
	}
	y, err := parseYear(year)
	if err != nil {
		return err
	}
	ctrl.SeekNearest(float64(y))
	return nil
}

// parseYear accepts "-700", "700", "700 BCE" and "1200 CE".
func parseYear(s string) (int, error) {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	if len(fields) == 2 {
		switch fields[1] {
		case "BCE", "BC":
			if n < 0 {
				return 0, fmt.Errorf("invalid year %q", s)
			}
			n = -n
		case "CE", "AD":
		default:
			return 0, fmt.Errorf("invalid year %q", s)
		}
	}
	return n, nil
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var result strings.Builder
	if neg {
		result.WriteString("-")
	}
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/geoword/internal/config"
	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/logging"
	"github.com/runnerr0/geoword/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// openTestDB creates a migrated in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	return db
}

func openTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, db
}

var algorithm = etymology.WordEvolution{
	OriginWord:       "al-Khwārizmī",
	ModernWord:       "Algorithm",
	EtymologySummary: "From the name of a Persian mathematician.",
	Timeline: etymology.Timeline{
		{Year: 825, Latitude: 33.31, Longitude: 44.36, Language: "Arabic", Word: "al-Khwārizmī", Description: "Name of the author.", Region: "Baghdad"},
		{Year: 1145, Latitude: 41.65, Longitude: -0.88, Language: "Medieval Latin", Word: "algorismus", Description: "Latin translation.", Region: "Spain"},
		{Year: 1230, Latitude: 48.85, Longitude: 2.35, Language: "Old French", Word: "algorisme", Description: "Arithmetic with numerals.", Region: "France"},
		{Year: 1699, Latitude: 51.51, Longitude: -0.13, Language: "English", Word: "algorithm", Description: "Modern spelling.", Region: "England"},
	},
}

// stubFetcher answers "algorithm" and fails everything else.
type stubFetcher struct {
	calls atomic.Int32
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	f.calls.Add(1)
	if etymology.NormalizeWord(word) != "algorithm" {
		return nil, errors.New("no such word")
	}
	evo := algorithm
	evo.Timeline = append(etymology.Timeline(nil), algorithm.Timeline...)
	return &evo, nil
}

// newTestApp wires an app around an in-memory store and the stub backend.
func newTestApp(t *testing.T) (*app, *stubFetcher) {
	t.Helper()
	store, db := openTestStore(t)
	f := &stubFetcher{}
	cfg := config.DefaultConfig()
	cfg.Playback.Interval = 5 * time.Millisecond
	return &app{
		cfg:     cfg,
		store:   store,
		db:      db,
		dbPath:  ":memory:",
		logger:  logging.Discard(),
		clock:   clockwork.NewRealClock(),
		fetcher: f,
	}, f
}

// seedTrace stores evo under word, fetched at ts.
func seedTrace(t *testing.T, store storage.Store, word string, evo etymology.WordEvolution, ts time.Time) *storage.Trace {
	t.Helper()
	trace := &storage.Trace{
		Word:      word,
		Provider:  "stub",
		FetchedAt: ts,
		Evolution: evo,
	}
	require.NoError(t, store.SaveTrace(context.Background(), trace))
	return trace
}

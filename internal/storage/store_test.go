package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/geoword/internal/etymology"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func algorithmTrace() *Trace {
	return &Trace{
		Word:     "Algorithm",
		Provider: "gemini",
		Evolution: etymology.WordEvolution{
			OriginWord:       "al-Khwarizmi",
			ModernWord:       "algorithm",
			EtymologySummary: "From the name of a Persian mathematician.",
			Timeline: etymology.Timeline{
				{Year: 1500, Latitude: 51.5, Longitude: -0.12, Language: "Middle English", Word: "algorisme", Region: "England"},
				{Year: 825, Latitude: 33.3, Longitude: 44.4, Language: "Arabic", Word: "al-Khwarizmi", Region: "Baghdad"},
				{Year: 1150, Latitude: 41.9, Longitude: 12.5, Language: "Medieval Latin", Word: "algorismus", Region: "Italy"},
			},
		},
	}
}

func simpleTrace(word, language string, fetched time.Time) *Trace {
	return &Trace{
		Word:      word,
		Provider:  "file",
		FetchedAt: fetched,
		Evolution: etymology.WordEvolution{
			OriginWord: word,
			ModernWord: word,
			Timeline:   etymology.Timeline{{Year: 100, Language: language, Word: word}},
		},
	}
}

func TestSaveTrace_GetTrace_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	trace := algorithmTrace()
	require.NoError(t, store.SaveTrace(ctx, trace))

	assert.Contains(t, trace.ID, "GW-")
	assert.Equal(t, 3, trace.StageCount)
	assert.False(t, trace.FetchedAt.IsZero())

	got, err := store.GetTrace(ctx, trace.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algorithm", got.Word)
	assert.Equal(t, "gemini", got.Provider)
	assert.Equal(t, "al-Khwarizmi", got.Evolution.OriginWord)
	require.Len(t, got.Evolution.Timeline, 3)
	assert.Equal(t, []int{825, 1150, 1500}, etymology.DistinctYears(got.Evolution.Timeline))
	assert.Equal(t, "Italy", got.Evolution.Timeline[1].Region)
	assert.WithinDuration(t, trace.FetchedAt, got.FetchedAt, time.Second)
}

func TestSaveTrace_GeneratesUniqueIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a, b := algorithmTrace(), algorithmTrace()
	require.NoError(t, store.SaveTrace(ctx, a))
	require.NoError(t, store.SaveTrace(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGetTrace_NotFound(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetTrace(context.Background(), "GW-nonexistent")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLatestByWord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := simpleTrace("Salary", "Latin", now.Add(-72*time.Hour))
	fresh := simpleTrace("salary", "Old French", now.Add(-time.Hour))
	require.NoError(t, store.SaveTrace(ctx, old))
	require.NoError(t, store.SaveTrace(ctx, fresh))

	got, err := store.LatestByWord(ctx, "  SALARY ", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)
	require.Len(t, got.Evolution.Timeline, 1)

	_, err = store.LatestByWord(ctx, "salary", now)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearchTraces_ByQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTrace(ctx, algorithmTrace()))
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("Tea", "Min Chinese", time.Time{})))

	results, err := store.SearchTraces(ctx, SearchQuery{Query: "algoris", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Algorithm", results[0].Word)
	assert.Equal(t, 3, results[0].StageCount)
	assert.Empty(t, results[0].Evolution.Timeline)
}

func TestSearchTraces_ByLanguage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTrace(ctx, algorithmTrace()))
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("Tea", "Min Chinese", time.Time{})))
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("Zero", "Arabic", time.Time{})))

	results, err := store.SearchTraces(ctx, SearchQuery{Language: "arabic", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchTraces_ByTimeRangeAndPagination(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, w := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.SaveTrace(ctx, simpleTrace(w, "Latin", now.Add(-time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("old", "Latin", now.Add(-72*time.Hour))))

	recent, err := store.SearchTraces(ctx, SearchQuery{Since: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 5)
	assert.Equal(t, "a", recent[0].Word, "newest first")

	page1, err := store.SearchTraces(ctx, SearchQuery{Limit: 2})
	require.NoError(t, err)
	page2, err := store.SearchTraces(ctx, SearchQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}

func TestDeleteTrace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	trace := algorithmTrace()
	require.NoError(t, store.SaveTrace(ctx, trace))
	require.NoError(t, store.DeleteTrace(ctx, trace.ID))

	_, err := store.GetTrace(ctx, trace.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalStages)

	assert.True(t, errors.Is(store.DeleteTrace(ctx, trace.ID), ErrNotFound))
}

func TestPruneExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old1 := simpleTrace("old1", "Latin", now.Add(-72*time.Hour))
	old2 := simpleTrace("old2", "Latin", now.Add(-48*time.Hour))
	recent := simpleTrace("recent", "Latin", now)
	for _, tr := range []*Trace{old1, old2, recent} {
		require.NoError(t, store.SaveTrace(ctx, tr))
	}

	cutoff := now.Add(-24 * time.Hour)
	n, err := store.CountExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pruned, err := store.PruneExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	_, err = store.GetTrace(ctx, recent.ID)
	require.NoError(t, err)
	_, err = store.GetTrace(ctx, old1.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalStages)
}

func TestPurgeAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTrace(ctx, algorithmTrace()))
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("Tea", "Min Chinese", time.Time{})))
	require.NoError(t, store.PurgeAll(ctx))

	results, err := store.SearchTraces(ctx, SearchQuery{Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, results)

	// still writable and searchable afterwards
	require.NoError(t, store.SaveTrace(ctx, algorithmTrace()))
	results, err = store.SearchTraces(ctx, SearchQuery{Query: "algorithm"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTraces)
	assert.True(t, stats.OldestTrace.IsZero())

	require.NoError(t, store.SaveTrace(ctx, algorithmTrace()))
	require.NoError(t, store.SaveTrace(ctx, simpleTrace("Zero", "Arabic", time.Time{})))

	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTraces)
	assert.Equal(t, int64(4), stats.TotalStages)
	assert.False(t, stats.NewestTrace.IsZero())
	assert.Positive(t, stats.DatabaseSizeBytes)
	require.NotEmpty(t, stats.TopLanguages)
	assert.Equal(t, "Arabic", stats.TopLanguages[0].Language)
	assert.Equal(t, int64(2), stats.TopLanguages[0].Count)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, "", ftsQuery("  "))
	assert.Equal(t, `"tea"* OR "chai"*`, ftsQuery("tea chai"))
	assert.Equal(t, `"say""s"*`, ftsQuery(`say"s`))
}

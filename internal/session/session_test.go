package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/storage"
)

var errBackend = errors.New("backend down")

type stubFetcher struct {
	mu    sync.Mutex
	evos  map[string]*etymology.WordEvolution
	gates map[string]chan struct{}
	calls atomic.Int32
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		evos:  make(map[string]*etymology.WordEvolution),
		gates: make(map[string]chan struct{}),
	}
}

func (f *stubFetcher) add(word string, years ...int) {
	tl := make(etymology.Timeline, 0, len(years))
	for _, y := range years {
		tl = append(tl, etymology.Stage{Year: y, Language: "L", Word: word})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evos[etymology.NormalizeWord(word)] = &etymology.WordEvolution{ModernWord: word, Timeline: etymology.SortByYear(tl)}
}

func (f *stubFetcher) gate(word string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[etymology.NormalizeWord(word)] = ch
	f.mu.Unlock()
	return ch
}

func (f *stubFetcher) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	f.calls.Add(1)
	key := etymology.NormalizeWord(word)

	f.mu.Lock()
	gate := f.gates[key]
	evo, ok := f.evos[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errBackend
	}
	return evo, nil
}

func newTestSession(t *testing.T, f *stubFetcher) (*Session, *playback.Controller) {
	t.Helper()
	ctrl := playback.NewController(clockwork.NewFakeClock(), 0, nil)
	t.Cleanup(ctrl.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, ctrl, "Algorithm", log), ctrl
}

func TestSearch_InstallsTimeline(t *testing.T) {
	f := newStubFetcher()
	f.add("Algorithm", 1500, 825, 1150)
	s, ctrl := newTestSession(t, f)

	ctrl.TogglePlay()
	st, err := s.Search(context.Background(), "  Algorithm ")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "Algorithm", st.Word)
	require.NotNil(t, st.Evolution)
	assert.Len(t, st.Evolution.Timeline, 3)

	snap := ctrl.Snapshot()
	assert.Equal(t, 825, snap.ActiveYear)
	assert.False(t, snap.Playing)
}

func TestSearch_BlankIsIgnored(t *testing.T) {
	f := newStubFetcher()
	s, _ := newTestSession(t, f)

	st, err := s.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, f.calls.Load())
}

func TestSearch_FailureKeepsPreviousTimeline(t *testing.T) {
	f := newStubFetcher()
	f.add("tea", 1000, 1650)
	s, ctrl := newTestSession(t, f)

	_, err := s.Search(context.Background(), "tea")
	require.NoError(t, err)
	ctrl.Seek(1650)

	st, err := s.Search(context.Background(), "xyzzy")
	assert.True(t, errors.Is(err, errBackend))
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, ErrorMessage, st.Message)
	require.NotNil(t, st.Evolution)
	assert.Equal(t, "tea", st.Evolution.ModernWord)
	assert.Equal(t, 1650, ctrl.Snapshot().ActiveYear)
}

func TestRetry_SearchesDefaultWord(t *testing.T) {
	f := newStubFetcher()
	f.add("Algorithm", 825)
	s, _ := newTestSession(t, f)

	_, err := s.Search(context.Background(), "xyzzy")
	require.Error(t, err)

	st, err := s.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "Algorithm", st.Word)
	assert.Empty(t, st.Message)
}

func TestSearch_StaleResultIsDiscarded(t *testing.T) {
	f := newStubFetcher()
	f.add("slow", 1, 2)
	f.add("fast", 10, 20)
	release := f.gate("slow")
	s, ctrl := newTestSession(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "slow")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	st, err := s.Search(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", st.Word)

	close(release)
	assert.True(t, errors.Is(<-done, ErrSuperseded))

	final := s.State()
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, "fast", final.Evolution.ModernWord)
	assert.Equal(t, 10, ctrl.Snapshot().ActiveYear)
}

func TestBegin_DuplicateSearchesShareOneFetch(t *testing.T) {
	f := newStubFetcher()
	f.add("tea", 1000, 1650)
	release := f.gate("tea")
	s, _ := newTestSession(t, f)

	st := s.Begin(context.Background(), "tea")
	assert.Equal(t, StatusLoading, st.Status)
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Begin(context.Background(), "Tea")
	time.Sleep(50 * time.Millisecond)
	close(release)
	s.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	final := s.State()
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, "Tea", final.Word)
}

func TestSearch_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := newStubFetcher()
	f.add("ocean", 1200, 1900)
	release := f.gate("ocean")
	s, ctrl := newTestSession(t, f)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	doneA := make(chan error, 1)
	go func() {
		_, err := s.Search(ctxA, "ocean")
		doneA <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		st  State
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		st, err := s.Search(context.Background(), "Ocean")
		doneB <- outcome{st, err}
	}()
	require.Eventually(t, func() bool { return s.State().Word == "Ocean" }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.True(t, errors.Is(<-doneA, ErrSuperseded))

	close(release)
	b := <-doneB
	require.NoError(t, b.err)
	assert.Equal(t, StatusSuccess, b.st.Status)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 1200, ctrl.Snapshot().ActiveYear)
}

func TestSearch_CancelledLatestCallerReportsError(t *testing.T) {
	f := newStubFetcher()
	f.add("ocean", 1200)
	release := f.gate("ocean")
	defer close(release)
	s, _ := newTestSession(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for f.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	st, err := s.Search(ctx, "ocean")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StatusError, st.Status)
}

func TestSubscribe_SeesLoadingThenResult(t *testing.T) {
	f := newStubFetcher()
	f.add("tea", 1000)
	release := f.gate("tea")
	s, _ := newTestSession(t, f)

	ch, cancel := s.Subscribe()
	defer cancel()
	assert.Equal(t, StatusIdle, (<-ch).Status)

	s.Begin(context.Background(), "tea")
	assert.Equal(t, StatusLoading, (<-ch).Status)

	close(release)
	s.Wait()
	assert.Equal(t, StatusSuccess, (<-ch).Status)
}

func TestLoad_InstallsStoredTraceAndSupersedes(t *testing.T) {
	f := newStubFetcher()
	f.add("slow", 1, 2)
	release := f.gate("slow")
	s, ctrl := newTestSession(t, f)

	s.Begin(context.Background(), "slow")
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	st := s.Load(&storage.Trace{
		ID:   "GW-0000abcd",
		Word: "tea",
		Evolution: etymology.WordEvolution{
			ModernWord: "tea",
			Timeline:   etymology.Timeline{{Year: 1650, Language: "English", Word: "tea"}},
		},
	})
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "GW-0000abcd", st.TraceID)
	assert.Equal(t, 1650, ctrl.Snapshot().ActiveYear)

	close(release)
	s.Wait()
	assert.Equal(t, "tea", s.State().Evolution.ModernWord)
}

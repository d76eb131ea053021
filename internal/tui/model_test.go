package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/session"
)

var zero = etymology.WordEvolution{
	OriginWord:       "ṣifr",
	ModernWord:       "Zero",
	EtymologySummary: "Arabic for empty.",
	Timeline: etymology.Timeline{
		{Year: 500, Language: "Sanskrit", Word: "śūnya", Region: "India"},
		{Year: 800, Language: "Arabic", Word: "ṣifr", Region: "Baghdad"},
		{Year: 1600, Language: "English", Word: "zero", Region: "England"},
	},
}

type stubFetcher struct{}

func (stubFetcher) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	if etymology.NormalizeWord(word) != "zero" {
		return nil, errors.New("unknown word")
	}
	evo := zero
	return &evo, nil
}

func newTestModel(t *testing.T) (Model, *playback.Controller, *session.Session) {
	t.Helper()
	ctrl := playback.NewController(clockwork.NewFakeClock(), 0, nil)
	t.Cleanup(ctrl.Close)
	sess := session.New(stubFetcher{}, ctrl, "Zero", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := sess.Search(context.Background(), "Zero")
	require.NoError(t, err)

	m, closeSubs := New(context.Background(), sess, ctrl)
	t.Cleanup(closeSubs)
	return m, ctrl, sess
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestKeys_DriveController(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 800, ctrl.Snapshot().ActiveYear)

	m = press(t, m, runes("3"))
	assert.Equal(t, 1600, ctrl.Snapshot().ActiveYear)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 800, ctrl.Snapshot().ActiveYear)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, ctrl.Snapshot().Playing)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyHome})
	snap := ctrl.Snapshot()
	assert.Equal(t, 500, snap.ActiveYear)
	assert.False(t, snap.Playing)

	// Out of range stage numbers are ignored.
	before := ctrl.Snapshot().Version
	press(t, m, runes("9"))
	assert.Equal(t, before, ctrl.Snapshot().Version)
}

func TestKeys_ScrubSnapsToStages(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	m.snap = ctrl.Snapshot()

	m = press(t, m, runes("]"))
	assert.Equal(t, 800, ctrl.Snapshot().ActiveYear)

	m.snap = ctrl.Snapshot()
	m = press(t, m, runes("["))
	assert.Equal(t, 500, ctrl.Snapshot().ActiveYear)

	m.snap = ctrl.Snapshot()
	press(t, m, runes("["))
	assert.Equal(t, 500, ctrl.Snapshot().ActiveYear)
}

func TestKeys_Quit(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestSearchInput(t *testing.T) {
	m, _, sess := newTestModel(t)

	m = press(t, m, runes("/"))
	assert.True(t, m.searching)

	// Keys go to the input while searching.
	m = press(t, m, runes("q"))
	assert.True(t, m.searching)
	assert.Equal(t, "q", m.input.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, session.StatusLoading, m.state.Status)
	sess.Wait()

	st := sess.State()
	assert.Equal(t, session.StatusError, st.Status)
	assert.Equal(t, "Zero", st.Evolution.ModernWord)

	m.state = st
	m = press(t, m, runes("R"))
	sess.Wait()
	assert.Equal(t, session.StatusSuccess, sess.State().Status)
}

func TestSearchInput_EscCancels(t *testing.T) {
	m, _, sess := newTestModel(t)
	seq := sess.State().Seq

	m = press(t, m, runes("/"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Equal(t, seq, sess.State().Seq)
}

func TestUpdate_AppliesSnapshots(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.Seek(1600)

	m = press(t, m, snapshotMsg{snap: ctrl.Snapshot(), ok: true})
	assert.Equal(t, 1600, m.snap.ActiveYear)

	view := m.View()
	assert.Contains(t, view, "Stage 3 of 3")
	assert.Contains(t, view, "1600 CE")
	assert.Contains(t, view, "Zero")
}

func TestView_Empty(t *testing.T) {
	ctrl := playback.NewController(clockwork.NewFakeClock(), 0, nil)
	defer ctrl.Close()
	sess := session.New(stubFetcher{}, ctrl, "Zero", slog.New(slog.NewTextHandler(io.Discard, nil)))
	m, closeSubs := New(context.Background(), sess, ctrl)
	defer closeSubs()

	view := m.View()
	assert.Contains(t, view, "Search for a word to explore its history.")
	assert.NotContains(t, view, "Stage")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHeadless_PlaysToTheEnd(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctrl := playback.NewController(clock, time.Second, nil)
	defer ctrl.Close()
	ctrl.OnTimelineReplaced(zero.Timeline)

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- Headless(context.Background(), &out, ctrl) }()

	var err error
	require.Eventually(t, func() bool {
		select {
		case err = <-done:
			return true
		default:
			clock.Advance(time.Second)
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[1/3] 500 CE"))
	assert.True(t, strings.HasPrefix(lines[2], "[3/3] 1600 CE"))
	assert.False(t, ctrl.Snapshot().Playing)
}

type slowWriter struct {
	syncBuffer
	delay time.Duration
}

func (w *slowWriter) Write(p []byte) (int, error) {
	time.Sleep(w.delay)
	return w.syncBuffer.Write(p)
}

func TestHeadless_FastIntervalPrintsEveryStage(t *testing.T) {
	tl := make(etymology.Timeline, 0, 20)
	for i := 0; i < 20; i++ {
		tl = append(tl, etymology.Stage{Year: 1000 + i*10, Language: "English", Word: "w"})
	}
	ctrl := playback.NewController(clockwork.NewRealClock(), time.Millisecond, nil)
	defer ctrl.Close()
	ctrl.OnTimelineReplaced(tl)

	out := &slowWriter{delay: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Headless(ctx, out, ctrl))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 20)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("[%d/20] %d CE", i+1, 1000+i*10)), line)
	}
}

func TestHeadless_EmptyTimeline(t *testing.T) {
	ctrl := playback.NewController(clockwork.NewFakeClock(), 0, nil)
	defer ctrl.Close()

	var out bytes.Buffer
	require.NoError(t, Headless(context.Background(), &out, ctrl))
	assert.Contains(t, out.String(), "Search for a word")
}

func TestHeadless_ContextCancel(t *testing.T) {
	ctrl := playback.NewController(clockwork.NewFakeClock(), 0, nil)
	defer ctrl.Close()
	ctrl.OnTimelineReplaced(zero.Timeline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Headless(ctx, io.Discard, ctrl)
	assert.ErrorIs(t, err, context.Canceled)
}

// Package session runs word searches and installs their timelines into the
// playback controller.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/fetcher"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/storage"
)

// Status of the latest search.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorMessage is the only failure text shown to users.
const ErrorMessage = "Failed to trace the evolution of this word. Try a common noun or verb."

// ErrSuperseded is returned to a search whose result arrived after a newer
// search had started. Its result is discarded.
var ErrSuperseded = errors.New("superseded by a newer search")

// sharedFetchTimeout bounds a backend call that no longer has a caller
// deadline attached.
const sharedFetchTimeout = 2 * time.Minute

// State is what the search surfaces show.
type State struct {
	Status    Status                   `json:"status"`
	Word      string                   `json:"word"`
	Message   string                   `json:"message,omitempty"`
	TraceID   string                   `json:"traceId,omitempty"`
	Cached    bool                     `json:"cached"`
	Evolution *etymology.WordEvolution `json:"evolution,omitempty"`
	Seq       uint64                   `json:"seq"`
}

// tracer is implemented by fetcher.Caching; plain fetchers are adapted.
type tracer interface {
	Trace(ctx context.Context, word string) (*storage.Trace, bool, error)
}

// Session owns the search lifecycle. Results are applied in request order:
// a monotonic sequence number rejects stale responses.
type Session struct {
	fetcher     fetcher.Fetcher
	controller  *playback.Controller
	defaultWord string
	log         *slog.Logger

	group singleflight.Group
	wg    sync.WaitGroup

	mu     sync.Mutex
	seq    uint64
	state  State
	subs   map[int]chan State
	nextID int
}

// New creates an idle session.
func New(f fetcher.Fetcher, controller *playback.Controller, defaultWord string, logger *slog.Logger) *Session {
	return &Session{
		fetcher:     f,
		controller:  controller,
		defaultWord: defaultWord,
		log:         logger.With("component", "session"),
		state:       State{Status: StatusIdle},
		subs:        make(map[int]chan State),
	}
}

// DefaultWord is the word searched on first load and by Retry.
func (s *Session) DefaultWord() string { return s.defaultWord }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Search fetches word and, if it is still the newest search when the
// result lands, installs it. A blank word is ignored. On failure the
// previous evolution and timeline stay in place.
func (s *Session) Search(ctx context.Context, word string) (State, error) {
	seq, ok := s.begin(word)
	if !ok {
		return s.State(), nil
	}
	return s.complete(ctx, seq, strings.TrimSpace(word))
}

// Begin starts a search in the background and returns the loading state.
func (s *Session) Begin(ctx context.Context, word string) State {
	seq, ok := s.begin(word)
	if !ok {
		return s.State()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.complete(ctx, seq, strings.TrimSpace(word)) //nolint:errcheck
	}()
	return s.State()
}

// Retry searches the default word again.
func (s *Session) Retry(ctx context.Context) (State, error) {
	return s.Search(ctx, s.defaultWord)
}

// Load installs a stored trace without fetching. Any search still in flight
// is superseded.
func (s *Session) Load(trace *storage.Trace) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	evo := trace.Evolution
	s.seq++
	s.state = State{
		Status:    StatusSuccess,
		Word:      trace.Word,
		TraceID:   trace.ID,
		Cached:    true,
		Evolution: &evo,
		Seq:       s.seq,
	}
	s.controller.OnTimelineReplaced(evo.Timeline)
	s.publishLocked()
	return s.state
}

// Wait blocks until every background search has finished.
func (s *Session) Wait() { s.wg.Wait() }

// Subscribe registers an observer of state changes; see
// playback.Controller.Subscribe for delivery semantics.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	ch <- s.state
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Session) begin(word string) (uint64, bool) {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.state.Status = StatusLoading
	s.state.Word = word
	s.state.Message = ""
	s.state.Seq = s.seq
	s.publishLocked()
	return s.seq, true
}

type result struct {
	trace  *storage.Trace
	cached bool
}

// fetch runs the shared backend call for word. It is detached from any one
// caller's context so that a caller going away does not fail the others
// waiting on the same word.
func (s *Session) fetch(ctx context.Context, word string) (any, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
	defer cancel()

	if t, ok := s.fetcher.(tracer); ok {
		trace, cached, err := t.Trace(ctx, word)
		if err != nil {
			return nil, err
		}
		return result{trace: trace, cached: cached}, nil
	}
	evo, err := s.fetcher.FetchWordEvolution(ctx, word)
	if err != nil {
		return nil, err
	}
	return result{trace: &storage.Trace{Word: word, Evolution: *evo}}, nil
}

func (s *Session) complete(ctx context.Context, seq uint64, word string) (State, error) {
	ch := s.group.DoChan(etymology.NormalizeWord(word), func() (any, error) {
		return s.fetch(ctx, word)
	})

	var (
		v      any
		err    error
		shared bool
	)
	select {
	case r := <-ch:
		v, err, shared = r.Val, r.Err, r.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.log.Debug("discarding stale result", "word", word, "seq", seq, "latest", s.seq)
		return s.state, ErrSuperseded
	}

	if err != nil {
		s.log.Error("search failed", "word", word, "error", err)
		s.state.Status = StatusError
		s.state.Message = ErrorMessage
		s.publishLocked()
		return s.state, err
	}

	res := v.(result)
	evo := res.trace.Evolution
	s.state.Status = StatusSuccess
	s.state.Evolution = &evo
	s.state.TraceID = res.trace.ID
	s.state.Cached = res.cached
	s.controller.OnTimelineReplaced(evo.Timeline)
	s.publishLocked()

	s.log.Info("search complete", "word", word, "stages", len(evo.Timeline), "cached", res.cached, "shared", shared)
	return s.state, nil
}

func (s *Session) publishLocked() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

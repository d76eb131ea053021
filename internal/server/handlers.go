package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/session"
	"github.com/runnerr0/geoword/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// sessionResponse is the session state plus the detail panel for the
// current snapshot.
type sessionResponse struct {
	session.State
	Panel render.Panel `json:"panel"`
}

type traceSummary struct {
	ID         string    `json:"id"`
	Word       string    `json:"word"`
	ModernWord string    `json:"modernWord"`
	OriginWord string    `json:"originWord"`
	Provider   string    `json:"provider"`
	StageCount int       `json:"stageCount"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

type traceResponse struct {
	traceSummary
	Evolution etymology.WordEvolution `json:"evolution"`
}

func summarize(t storage.Trace) traceSummary {
	return traceSummary{
		ID:         t.ID,
		Word:       t.Word,
		ModernWord: t.Evolution.ModernWord,
		OriginWord: t.Evolution.OriginWord,
		Provider:   t.Provider,
		StageCount: t.StageCount,
		FetchedAt:  t.FetchedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.opts.Version,
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Timestamp: time.Now(),
	})
}

func (s *Server) sessionView(st session.State) sessionResponse {
	return sessionResponse{State: st, Panel: render.NewPanel(st.Evolution, s.controller.Snapshot())}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView(s.session.State()))
}

type searchRequest struct {
	Word string `json:"word"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	s.runSearch(w, r, func(ctx context.Context) (session.State, error) {
		return s.session.Search(ctx, req.Word)
	})
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, s.session.Retry)
}

// runSearch maps search outcomes to status codes. The generic failure
// message is the only error text a client sees.
func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, fn func(context.Context) (session.State, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.SearchTimeout)
	defer cancel()

	st, err := fn(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.sessionView(st))
	case errors.Is(err, session.ErrSuperseded):
		writeJSON(w, http.StatusConflict, s.sessionView(st))
	default:
		writeJSON(w, http.StatusBadGateway, s.sessionView(st))
	}
}

func (s *Server) getPlayback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// playbackAction handles POST /api/playback/{action}. seek and select read
// ?year=, scrub reads ?value=.
func (s *Server) playbackAction(w http.ResponseWriter, r *http.Request) {
	a := Action{Action: chi.URLParam(r, "action")}
	switch a.Action {
	case "seek", "select":
		a.Value = r.URL.Query().Get("year")
	case "scrub":
		a.Value = r.URL.Query().Get("value")
	}

	if err := applyPlayback(s.controller, a); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnknownAction) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	q := r.URL.Query()
	query := storage.SearchQuery{
		Query:    q.Get("q"),
		Language: q.Get("language"),
		Limit:    20,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		query.Since = t
	}

	traces, err := s.store.SearchTraces(r.Context(), query)
	if err != nil {
		s.logger.Error("history search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history search failed")
		return
	}
	out := make([]traceSummary, 0, len(traces))
	for _, t := range traces {
		out = append(out, summarize(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookupTrace(w http.ResponseWriter, r *http.Request) (*storage.Trace, bool) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return nil, false
	}
	trace, err := s.store.GetTrace(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trace not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get trace failed", "error", err)
		writeError(w, http.StatusInternalServerError, "get trace failed")
		return nil, false
	}
	return trace, true
}

func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	trace, ok := s.lookupTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, traceResponse{traceSummary: summarize(*trace), Evolution: trace.Evolution})
}

func (s *Server) loadTrace(w http.ResponseWriter, r *http.Request) {
	trace, ok := s.lookupTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(s.session.Load(trace)))
}

func (s *Server) mapSVG(w http.ResponseWriter, r *http.Request) {
	s.writeSVG(w, s.controller.Snapshot(), render.Map)
}

func (s *Server) timelineSVG(w http.ResponseWriter, r *http.Request) {
	s.writeSVG(w, s.controller.Snapshot(), render.TimelineStrip)
}

func (s *Server) writeSVG(w http.ResponseWriter, snap playback.Snapshot, draw func(io.Writer, playback.Snapshot, render.Options) error) {
	var buf bytes.Buffer
	if err := draw(&buf, snap, s.opts.Render); err != nil {
		s.logger.Error("render failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes()) //nolint:errcheck
}

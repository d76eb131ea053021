package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/runnerr0/geoword/internal/playback"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadValue      = errors.New("bad value")
)

// Action is a gesture sent by a client, over HTTP or the stream.
type Action struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

// applyPlayback runs a playback action. Well-formed but out of range values
// are absorbed by the controller.
func applyPlayback(ctrl *playback.Controller, a Action) error {
	switch a.Action {
	case "next":
		ctrl.Next()
	case "prev":
		ctrl.Prev()
	case "reset":
		ctrl.Reset()
	case "toggle":
		ctrl.TogglePlay()
	case "seek", "select":
		year, err := strconv.Atoi(strings.TrimSpace(a.Value))
		if err != nil {
			return fmt.Errorf("%w: year %q", ErrBadValue, a.Value)
		}
		if a.Action == "seek" {
			ctrl.Seek(year)
		} else {
			ctrl.Select(year)
		}
	case "scrub":
		v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
		if err != nil {
			return fmt.Errorf("%w: scrub value %q", ErrBadValue, a.Value)
		}
		ctrl.SeekNearest(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Action)
	}
	return nil
}

// apply runs any action, including searches. Searches started from the
// stream run in the background; their outcome arrives as a session message.
func (s *Server) apply(ctx context.Context, a Action) error {
	switch a.Action {
	case "search":
		s.session.Begin(ctx, a.Value)
		return nil
	case "retry":
		s.session.Begin(ctx, s.session.DefaultWord())
		return nil
	}
	return applyPlayback(s.controller, a)
}

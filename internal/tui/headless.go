package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
)

// Headless autoplays the loaded timeline and prints one line per stage. It
// returns when playback stops on its own at the last stage, or when ctx is
// done.
func Headless(ctx context.Context, w io.Writer, ctrl *playback.Controller) error {
	snaps, cancel := ctrl.Subscribe()
	defer cancel()

	snap := <-snaps
	if snap.Empty() {
		fmt.Fprintln(w, render.EmptyHint)
		return nil
	}
	printStage(w, snap)
	last := snap.ActiveIndex

	if !snap.Playing {
		ctrl.TogglePlay()
	}
	started := ctrl.Snapshot().Version

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-snaps:
			if !ok {
				return nil
			}
			if s.Version < started {
				continue
			}
			// The subscription keeps only the newest snapshot, so stages
			// passed between two receives are printed from its years.
			switch {
			case s.ActiveIndex > last:
				for i := last + 1; i <= s.ActiveIndex; i++ {
					printStage(w, stageSnapshot(s, i))
				}
				last = s.ActiveIndex
			case s.ActiveIndex < last:
				printStage(w, s)
				last = s.ActiveIndex
			}
			if !s.Playing {
				return nil
			}
		}
	}
}

// stageSnapshot is s with stage i made active.
func stageSnapshot(s playback.Snapshot, i int) playback.Snapshot {
	if i < 0 || i >= len(s.Years) {
		return s
	}
	s.ActiveIndex = i
	s.ActiveYear = s.Years[i]
	s.HasActive = true
	return s
}

func printStage(w io.Writer, snap playback.Snapshot) {
	st, ok := snap.ActiveStage()
	if !ok {
		return
	}
	pos, total := snap.Progress()
	fmt.Fprintf(w, "[%d/%d] %-9s %-20s %-18s %s\n",
		pos, total, etymology.FormatYear(st.Year), st.Language, st.Word, render.ProgressBar(snap))
}

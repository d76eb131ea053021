package playback

import "github.com/runnerr0/geoword/internal/etymology"

// Snapshot is an immutable view of the controller state. Version increases
// on every transition.
type Snapshot struct {
	Version     uint64             `json:"version"`
	Timeline    etymology.Timeline `json:"timeline"`
	Years       []int              `json:"years"`
	ActiveYear  int                `json:"activeYear"`
	HasActive   bool               `json:"hasActive"`
	ActiveIndex int                `json:"activeIndex"`
	Playing     bool               `json:"isPlaying"`
}

// Empty reports whether no timeline is loaded.
func (s Snapshot) Empty() bool { return len(s.Years) == 0 }

// ActiveStage returns the stage shown in the detail panel.
func (s Snapshot) ActiveStage() (etymology.Stage, bool) {
	if !s.HasActive {
		return etymology.Stage{}, false
	}
	return s.Timeline.StageAt(s.ActiveYear)
}

// Visible returns the stages drawn on the map for the active year.
func (s Snapshot) Visible() etymology.Timeline {
	if !s.HasActive {
		return nil
	}
	return s.Timeline.VisibleUntil(s.ActiveYear)
}

// Progress is the 1-based stage position and the stage count, as shown in
// "Stage i of n".
func (s Snapshot) Progress() (pos, total int) {
	return s.ActiveIndex + 1, len(s.Years)
}

// AtEnd reports whether the active year is the last one.
func (s Snapshot) AtEnd() bool {
	return s.HasActive && s.ActiveIndex == len(s.Years)-1
}

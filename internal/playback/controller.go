// Package playback owns the active position within a traced word's timeline
// and advances it either on request or on a fixed autoplay interval.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/runnerr0/geoword/internal/etymology"
)

// DefaultInterval is the autoplay step.
const DefaultInterval = 2500 * time.Millisecond

// Controller is the single source of truth for the active year. Every
// transition, whether it comes from a caller or from the autoplay timer, is
// serialized on mu. Operations on an empty timeline are no-ops.
type Controller struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	timeline etymology.Timeline
	years    []int
	active   int // index into years, -1 when there is none
	playing  bool
	version  uint64
	closed   bool

	// timer is the one autoplay timer; only startTimer and stopTimer touch it.
	timer clockwork.Timer
	gen   uint64

	subs   map[int]chan Snapshot
	nextID int
}

// NewController builds an idle controller with an empty timeline. A nil clock
// means the real clock, a non-positive interval means DefaultInterval.
func NewController(clock clockwork.Clock, interval time.Duration, logger *slog.Logger) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		clock:    clock,
		interval: interval,
		logger:   logger.With("component", "playback"),
		active:   -1,
		subs:     make(map[int]chan Snapshot),
	}
}

// Interval returns the autoplay step.
func (c *Controller) Interval() time.Duration { return c.interval }

// OnTimelineReplaced installs a new timeline. The active year moves to the
// earliest year (or none) and playback stops.
func (c *Controller) OnTimelineReplaced(tl etymology.Timeline) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeline = etymology.SortByYear(tl)
	c.years = etymology.DistinctYears(c.timeline)
	c.active = -1
	if len(c.years) > 0 {
		c.active = 0
	}
	c.playing = false
	c.changedLocked()
}

// Seek moves to year when it is one of the timeline's years.
func (c *Controller) Seek(year int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOfLocked(year)
	if idx < 0 || idx == c.active {
		return
	}
	c.active = idx
	c.changedLocked()
}

// SeekNearest snaps a continuous scrub value to the closest timeline year and
// stops playback. On an exact tie the earlier year wins.
func (c *Controller) SeekNearest(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.years) == 0 {
		return
	}
	best := 0
	for i := 1; i < len(c.years); i++ {
		if absDiff(c.years[i], value) < absDiff(c.years[best], value) {
			best = i
		}
	}
	if best == c.active && !c.playing {
		return
	}
	c.active = best
	c.playing = false
	c.changedLocked()
}

// Select is a stage-card click: seek to year and stop playback.
func (c *Controller) Select(year int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOfLocked(year)
	if idx < 0 || (idx == c.active && !c.playing) {
		return
	}
	c.active = idx
	c.playing = false
	c.changedLocked()
}

// Next advances one year. At the last year it stops playback instead.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextLocked()
}

// Prev steps back one year; no-op at the first.
func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active <= 0 {
		return
	}
	c.active--
	c.changedLocked()
}

// Reset rewinds to the earliest year and stops playback.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.years) == 0 {
		return
	}
	if c.active == 0 && !c.playing {
		return
	}
	c.active = 0
	c.playing = false
	c.changedLocked()
}

// TogglePlay flips playback. On an empty timeline the flag flips but no
// timer is armed.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playing = !c.playing
	c.changedLocked()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer. The channel holds at most one pending
// snapshot; a slow reader only ever sees the latest state. The current state
// is delivered immediately. cancel closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan Snapshot, 1)
	ch <- c.snapshotLocked()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close disarms the timer and closes every subscription. Later operations
// still update state but no timer is ever armed again.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) nextLocked() {
	if len(c.years) == 0 {
		return
	}
	if c.active < len(c.years)-1 {
		c.active++
	} else {
		if !c.playing {
			return
		}
		c.playing = false
	}
	c.changedLocked()
}

// changedLocked publishes the new state and re-arms or disarms the timer.
func (c *Controller) changedLocked() {
	c.version++
	if c.playing && len(c.years) > 0 && !c.closed {
		c.startTimer()
	} else {
		c.stopTimer()
	}

	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// startTimer arms a fresh timer, disarming any previous one first.
func (c *Controller) startTimer() {
	c.stopTimer()
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.interval, func() {
		// Hop off the clock's goroutine before taking mu.
		go c.tick(gen)
	})
}

func (c *Controller) stopTimer() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.gen++
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen || !c.playing {
		return
	}
	c.timer = nil
	c.logger.Debug("autoplay step", "index", c.active, "years", len(c.years))
	c.nextLocked()
}

func (c *Controller) indexOfLocked(year int) int {
	for i, y := range c.years {
		if y == year {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:     c.version,
		Timeline:    c.timeline,
		Years:       c.years,
		ActiveIndex: c.active,
		Playing:     c.playing,
	}
	if c.active >= 0 {
		s.ActiveYear = c.years[c.active]
		s.HasActive = true
	}
	return s
}

// timerArmed reports whether an autoplay timer is pending.
func (c *Controller) timerArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func absDiff(year int, value float64) float64 {
	d := float64(year) - value
	if d < 0 {
		return -d
	}
	return d
}

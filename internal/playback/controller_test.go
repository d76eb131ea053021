package playback

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/geoword/internal/etymology"
)

func threeStages() etymology.Timeline {
	return etymology.Timeline{
		{Year: 1500, Language: "Middle English", Word: "algorisme"},
		{Year: -300, Language: "Proto-Greek", Word: "arithmos"},
		{Year: 50, Language: "Latin", Word: "algorismus"},
	}
}

func newTestController(t *testing.T) (*Controller, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	c := NewController(clock, DefaultInterval, nil)
	t.Cleanup(c.Close)
	return c, clock
}

func waitFor(t *testing.T, c *Controller, cond func(Snapshot) bool) {
	t.Helper()
	assert.Eventually(t, func() bool { return cond(c.Snapshot()) }, time.Second, 5*time.Millisecond)
}

func TestOnTimelineReplaced_StartsAtEarliestYear(t *testing.T) {
	c, _ := newTestController(t)

	c.OnTimelineReplaced(threeStages())
	s := c.Snapshot()

	require.True(t, s.HasActive)
	assert.Equal(t, -300, s.ActiveYear)
	assert.Equal(t, 0, s.ActiveIndex)
	assert.False(t, s.Playing)
	assert.Equal(t, []int{-300, 50, 1500}, s.Years)
	assert.True(t, s.Timeline.Sorted())
}

func TestOnTimelineReplaced_RandomTimelines(t *testing.T) {
	c, _ := newTestController(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		n := 1 + rng.Intn(8)
		tl := make(etymology.Timeline, n)
		minYear := math.MaxInt
		for j := range tl {
			tl[j] = etymology.Stage{Year: rng.Intn(4000) - 2000, Language: "L", Word: "w"}
			if tl[j].Year < minYear {
				minYear = tl[j].Year
			}
		}
		c.TogglePlay()
		c.OnTimelineReplaced(tl)

		s := c.Snapshot()
		assert.Equal(t, minYear, s.ActiveYear)
		assert.False(t, s.Playing)
		assert.False(t, c.timerArmed())
	}
}

func TestOnTimelineReplaced_EmptyClearsActive(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.OnTimelineReplaced(nil)

	s := c.Snapshot()
	assert.False(t, s.HasActive)
	assert.Equal(t, -1, s.ActiveIndex)
	assert.True(t, s.Empty())
}

func TestNext_WalksToEndThenStops(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())

	c.Next()
	assert.Equal(t, 50, c.Snapshot().ActiveYear)
	c.Next()
	assert.Equal(t, 1500, c.Snapshot().ActiveYear)

	c.TogglePlay()
	c.Next()
	s := c.Snapshot()
	assert.Equal(t, 1500, s.ActiveYear)
	assert.False(t, s.Playing)
	assert.True(t, s.AtEnd())
}

func TestNextPrev_AreInverse(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	years := c.Snapshot().Years

	for _, y := range years[:len(years)-1] {
		c.Seek(y)
		c.Next()
		c.Prev()
		assert.Equal(t, y, c.Snapshot().ActiveYear)
	}
}

func TestPrev_NoopAtFirstAndKeepsPlaying(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()
	before := c.Snapshot()

	c.Prev()
	after := c.Snapshot()
	assert.Equal(t, -300, after.ActiveYear)
	assert.True(t, after.Playing)
	assert.Equal(t, before.Version, after.Version)
}

func TestSeek_MembersOnly(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()

	c.Seek(1000)
	assert.Equal(t, -300, c.Snapshot().ActiveYear)

	c.Seek(1500)
	s := c.Snapshot()
	assert.Equal(t, 1500, s.ActiveYear)
	assert.True(t, s.Playing, "seek does not change playback")
}

func TestSeekNearest(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()

	c.SeekNearest(1000)
	s := c.Snapshot()
	assert.Equal(t, 1500, s.ActiveYear)
	assert.False(t, s.Playing)
	assert.False(t, c.timerArmed())
}

func TestSeekNearest_TiePrefersEarlierYear(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(etymology.Timeline{{Year: 0}, {Year: 100}, {Year: 300}})

	c.SeekNearest(50)
	assert.Equal(t, 0, c.Snapshot().ActiveYear)
	c.SeekNearest(200)
	assert.Equal(t, 100, c.Snapshot().ActiveYear)
}

func TestSeekNearest_NoCloserMember(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(etymology.Timeline{{Year: -3000}, {Year: -300}, {Year: 50}, {Year: 50}, {Year: 900}, {Year: 1500}})
	years := c.Snapshot().Years
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		v := rng.Float64()*8000 - 4000
		c.SeekNearest(v)
		got := c.Snapshot().ActiveYear

		assert.Contains(t, years, got)
		for _, y := range years {
			d, best := math.Abs(float64(y)-v), math.Abs(float64(got)-v)
			assert.False(t, d < best, "year %d is closer to %v than %d", y, v, got)
			if d == best {
				assert.GreaterOrEqual(t, y, got)
			}
		}
	}
}

func TestSelect_SeeksAndStops(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()

	c.Select(50)
	s := c.Snapshot()
	assert.Equal(t, 50, s.ActiveYear)
	assert.False(t, s.Playing)

	c.Select(7)
	assert.Equal(t, 50, c.Snapshot().ActiveYear)
}

func TestReset_Idempotent(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.Seek(1500)
	c.TogglePlay()

	c.Reset()
	once := c.Snapshot()
	c.Reset()
	twice := c.Snapshot()

	assert.Equal(t, -300, once.ActiveYear)
	assert.False(t, once.Playing)
	assert.Equal(t, once, twice)
}

func TestEmptyTimeline(t *testing.T) {
	c, _ := newTestController(t)

	c.TogglePlay()
	s := c.Snapshot()
	assert.True(t, s.Playing)
	assert.False(t, c.timerArmed())

	version := s.Version
	c.Next()
	c.Prev()
	c.Reset()
	c.Seek(10)
	c.SeekNearest(10)
	c.Select(10)
	assert.Equal(t, version, c.Snapshot().Version)
	assert.False(t, c.Snapshot().HasActive)
}

func TestAutoplay_AdvancesThenStopsAtEnd(t *testing.T) {
	c, clock := newTestController(t)
	c.OnTimelineReplaced(threeStages())

	c.TogglePlay()
	require.True(t, c.timerArmed())

	clock.Advance(DefaultInterval - time.Millisecond)
	assert.Equal(t, -300, c.Snapshot().ActiveYear)

	clock.Advance(time.Millisecond)
	waitFor(t, c, func(s Snapshot) bool { return s.ActiveYear == 50 })
	assert.True(t, c.Snapshot().Playing)

	clock.Advance(DefaultInterval)
	waitFor(t, c, func(s Snapshot) bool { return s.ActiveYear == 1500 })
	assert.True(t, c.Snapshot().Playing)

	clock.Advance(DefaultInterval)
	waitFor(t, c, func(s Snapshot) bool { return !s.Playing })
	assert.Equal(t, 1500, c.Snapshot().ActiveYear)
	assert.False(t, c.timerArmed())
}

func TestAutoplay_RearmsOnManualStep(t *testing.T) {
	c, clock := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()

	clock.Advance(2 * time.Second)
	c.Next() // re-arms a full interval from now
	assert.Equal(t, 50, c.Snapshot().ActiveYear)

	clock.Advance(time.Second)
	assert.Equal(t, 50, c.Snapshot().ActiveYear)

	clock.Advance(DefaultInterval - time.Second)
	waitFor(t, c, func(s Snapshot) bool { return s.ActiveYear == 1500 })
}

func TestAutoplay_DisarmedByReplacement(t *testing.T) {
	c, clock := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.TogglePlay()

	c.OnTimelineReplaced(etymology.Timeline{{Year: 10}, {Year: 20}})
	assert.False(t, c.timerArmed())

	clock.Advance(3 * DefaultInterval)
	time.Sleep(20 * time.Millisecond)
	s := c.Snapshot()
	assert.Equal(t, 10, s.ActiveYear)
	assert.False(t, s.Playing)
}

func TestClose_StopsTimerAndSubscriptions(t *testing.T) {
	c, clock := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	ch, _ := c.Subscribe()
	c.TogglePlay()

	c.Close()
	assert.False(t, c.timerArmed())

	clock.Advance(3 * DefaultInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, -300, c.Snapshot().ActiveYear)

	for range ch {
	}
}

func TestSubscribe_LatestWins(t *testing.T) {
	c, _ := newTestController(t)
	ch, cancel := c.Subscribe()
	defer cancel()

	initial := <-ch
	assert.True(t, initial.Empty())

	c.OnTimelineReplaced(threeStages())
	c.Next()
	c.Next()

	latest := <-ch
	assert.Equal(t, 1500, latest.ActiveYear)
	select {
	case s := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", s)
	default:
	}

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestSnapshot_Helpers(t *testing.T) {
	c, _ := newTestController(t)
	c.OnTimelineReplaced(threeStages())
	c.Seek(50)
	s := c.Snapshot()

	stage, ok := s.ActiveStage()
	require.True(t, ok)
	assert.Equal(t, "Latin", stage.Language)

	pos, total := s.Progress()
	assert.Equal(t, 2, pos)
	assert.Equal(t, 3, total)
	assert.Len(t, s.Visible(), 2)
	assert.False(t, s.AtEnd())
}

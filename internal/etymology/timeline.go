package etymology

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// SortByYear returns a copy of stages ordered by ascending year. Stages that
// share a year keep their input order.
func SortByYear(stages []Stage) Timeline {
	sorted := make(Timeline, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})
	return sorted
}

// DistinctYears returns the distinct years of an already sorted timeline in
// ascending order. These are the only legal active positions.
func DistinctYears(sorted Timeline) []int {
	years := make([]int, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && s.Year == sorted[i-1].Year {
			continue
		}
		years = append(years, s.Year)
	}
	return years
}

// Sorted reports whether t is already in ascending year order.
func (t Timeline) Sorted() bool {
	return sort.SliceIsSorted(t, func(i, j int) bool { return t[i].Year < t[j].Year })
}

// StageAt returns the first stage recorded for year. When no stage matches,
// the first stage of the timeline is returned instead, mirroring what the
// detail panel shows before any selection. ok is false only for an empty
// timeline.
func (t Timeline) StageAt(year int) (Stage, bool) {
	if len(t) == 0 {
		return Stage{}, false
	}
	for _, s := range t {
		if s.Year == year {
			return s, true
		}
	}
	return t[0], true
}

// IndexOf returns the position of the first stage recorded for year, or -1.
func (t Timeline) IndexOf(year int) int {
	for i, s := range t {
		if s.Year == year {
			return i
		}
	}
	return -1
}

// Root returns the earliest stage.
func (t Timeline) Root() (Stage, bool) {
	if len(t) == 0 {
		return Stage{}, false
	}
	return t[0], true
}

// VisibleUntil returns the stages whose year is not after year.
func (t Timeline) VisibleUntil(year int) Timeline {
	visible := make(Timeline, 0, len(t))
	for _, s := range t {
		if s.Year <= year {
			visible = append(visible, s)
		}
	}
	return visible
}

// Legs pairs consecutive stages into migration legs.
func (t Timeline) Legs() []Leg {
	if len(t) < 2 {
		return nil
	}
	legs := make([]Leg, 0, len(t)-1)
	for i := 0; i < len(t)-1; i++ {
		legs = append(legs, Leg{
			From:     t[i],
			To:       t[i+1],
			Distance: geo.Distance(t[i].Point(), t[i+1].Point()),
		})
	}
	return legs
}

// YearSpan returns the earliest and latest year of a sorted timeline.
func (t Timeline) YearSpan() (minYear, maxYear int) {
	if len(t) == 0 {
		return 0, 0
	}
	return t[0].Year, t[len(t)-1].Year
}

// Point returns the stage location as an orb point (lon, lat).
func (s Stage) Point() orb.Point {
	return orb.Point{s.Longitude, s.Latitude}
}

// FormatYear renders a year as an era label, e.g. "300 BCE" or "1500 CE".
func FormatYear(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BCE", -year)
	}
	return fmt.Sprintf("%d CE", year)
}

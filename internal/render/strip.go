package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
)

const (
	stripHeight = 120
	stripMargin = 60
)

// TimelineStrip writes the progress strip: one marker per stage placed in
// proportion to its year, filled once the stage has been reached.
func TimelineStrip(w io.Writer, snap playback.Snapshot, opts Options) error {
	width := opts.Width
	lineY := stripHeight / 2

	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.year-text { font-family: %s; font-size: 10px; fill: #8b93a7; }
.form-text { font-family: %s; font-size: 11px; font-weight: bold; fill: #ffffff; }
</style>
</defs>
`, width, stripHeight, opts.Background, opts.FontFamily, opts.FontFamily)

	if !snap.Empty() {
		fmt.Fprintf(&svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-opacity="0.35" stroke-width="4"/>`+"\n",
			stripMargin, lineY, width-stripMargin, lineY, opts.Primary)

		minYear, maxYear := snap.Timeline.YearSpan()
		if snap.HasActive {
			ax := markerX(snap.ActiveYear, minYear, maxYear, width)
			fmt.Fprintf(&svg, `<line class="progress" x1="%d" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="4"/>`+"\n",
				stripMargin, lineY, ax, lineY, opts.Primary)
		}

		for _, st := range snap.Timeline {
			writeMarker(&svg, st, snap, minYear, maxYear, width, lineY, opts)
		}

		fmt.Fprintf(&svg, `<text class="year-text" x="%d" y="%d" text-anchor="start">%s</text>`+"\n",
			stripMargin, stripHeight-8, escapeXML(etymology.FormatYear(minYear)))
		fmt.Fprintf(&svg, `<text class="year-text" x="%d" y="%d" text-anchor="end">%s</text>`+"\n",
			width-stripMargin, stripHeight-8, escapeXML(etymology.FormatYear(maxYear)))
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

func writeMarker(svg *strings.Builder, st etymology.Stage, snap playback.Snapshot, minYear, maxYear, width, lineY int, opts Options) {
	x := markerX(st.Year, minYear, maxYear, width)
	reached := snap.HasActive && st.Year <= snap.ActiveYear
	active := snap.HasActive && st.Year == snap.ActiveYear

	fill, r := opts.Background, 5
	if reached {
		fill = opts.Primary
	}
	if active {
		fill, r = opts.Node, 7
	}
	fmt.Fprintf(svg, `<circle class="marker" cx="%.1f" cy="%d" r="%d" fill="%s" stroke="%s" stroke-width="2" data-year="%d"/>`+"\n",
		x, lineY, r, fill, opts.Primary, st.Year)
	if active {
		fmt.Fprintf(svg, `<text class="form-text" x="%.1f" y="%d" text-anchor="middle">%s</text>`+"\n",
			x, lineY-16, escapeXML(st.Word))
		fmt.Fprintf(svg, `<text class="year-text" x="%.1f" y="%d" text-anchor="middle">%s</text>`+"\n",
			x, lineY+24, escapeXML(etymology.FormatYear(st.Year)))
	}
}

// markerX places year on the strip. A single-year timeline sits in the
// middle.
func markerX(year, minYear, maxYear, width int) float64 {
	usable := float64(width - 2*stripMargin)
	if maxYear == minYear {
		return float64(stripMargin) + usable/2
	}
	return float64(stripMargin) + usable*float64(year-minYear)/float64(maxYear-minYear)
}

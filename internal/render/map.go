package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
)

// Web Mercator is undefined at the poles.
const maxLatitude = 85

// viewport maps Web Mercator meters to SVG pixels. The scale and vertical
// offset keep the populated latitudes in frame for a 16:9 canvas.
type viewport struct {
	width, height float64
	k             float64
}

func newViewport(width, height int) viewport {
	w := float64(width)
	return viewport{
		width:  w,
		height: float64(height),
		k:      (w / 6.5) / orb.EarthRadius,
	}
}

func (v viewport) pixel(p orb.Point) (x, y float64) {
	p[1] = math.Max(-maxLatitude, math.Min(maxLatitude, p[1]))
	m := project.Point(p, project.WGS84.ToMercator)
	return v.width/2 + m[0]*v.k, v.height/1.6 - m[1]*v.k
}

// Map writes the migration map for snap: stages up to the active year are
// drawn as nodes joined by curved legs, and the active stage is highlighted.
func Map(w io.Writer, snap playback.Snapshot, opts Options) error {
	vp := newViewport(opts.Width, opts.Height)

	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">
<defs>
<filter id="glow"><feGaussianBlur stdDeviation="3" result="blur"/><feComposite in="SourceGraphic" in2="blur" operator="over"/></filter>
</defs>
<rect width="100%%" height="100%%" fill="%s"/>
`, opts.Width, opts.Height, opts.Width, opts.Height, opts.Background)

	writeGraticule(&svg, vp, opts)

	visible := snap.Visible()
	for _, leg := range visible.Legs() {
		writeLeg(&svg, vp, leg, opts)
	}
	for _, st := range visible {
		active := snap.HasActive && st.Year == snap.ActiveYear
		writeNode(&svg, vp, st, active, opts)
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

func writeGraticule(svg *strings.Builder, vp viewport, opts Options) {
	svg.WriteString(`<g class="graticule" fill="none" stroke-width="0.6" stroke-opacity="0.25" stroke="` + opts.Primary + `">`)
	for lon := -180.0; lon <= 180; lon += 30 {
		x1, y1 := vp.pixel(orb.Point{lon, maxLatitude})
		x2, y2 := vp.pixel(orb.Point{lon, -maxLatitude})
		fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`, x1, y1, x2, y2)
	}
	for lat := -60.0; lat <= 60; lat += 30 {
		x1, y1 := vp.pixel(orb.Point{-180, lat})
		x2, y2 := vp.pixel(orb.Point{180, lat})
		fmt.Fprintf(svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`, x1, y1, x2, y2)
	}
	svg.WriteString("</g>\n")
}

// writeLeg draws a quadratic curve bowed to the left of the direction of
// travel so that return legs do not overlap outbound ones.
func writeLeg(svg *strings.Builder, vp viewport, leg etymology.Leg, opts Options) {
	x1, y1 := vp.pixel(leg.From.Point())
	x2, y2 := vp.pixel(leg.To.Point())

	dx, dy := x2-x1, y2-y1
	cx := (x1+x2)/2 - dy*0.2
	cy := (y1+y2)/2 + dx*0.2

	fmt.Fprintf(svg, `<path class="migration-path" d="M%.1f,%.1f Q%.1f,%.1f %.1f,%.1f" fill="none" stroke="%s" stroke-width="2.5" opacity="0.8" data-km="%.0f"/>`+"\n",
		x1, y1, cx, cy, x2, y2, opts.Primary, leg.Distance/1000)
}

func writeNode(svg *strings.Builder, vp viewport, st etymology.Stage, active bool, opts Options) {
	x, y := vp.pixel(st.Point())
	fill, class := opts.Primary, "point"
	if active {
		fill, class = opts.Node, "point active"
	}
	fmt.Fprintf(svg, `<g class="%s" transform="translate(%.1f,%.1f)" data-year="%d">`, class, x, y, st.Year)
	fmt.Fprintf(svg, `<circle r="6" fill="%s" stroke="#fff" stroke-width="2" filter="url(#glow)"/>`, fill)
	fmt.Fprintf(svg, `<text y="-15" text-anchor="middle" fill="#fff" font-family="%s" font-size="11" font-weight="700" paint-order="stroke" stroke="#000" stroke-width="3">%s</text>`,
		escapeXML(opts.FontFamily), escapeXML(st.Word))
	svg.WriteString("</g>\n")
}

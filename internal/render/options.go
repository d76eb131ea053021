// Package render draws playback snapshots: an SVG migration map, an SVG
// timeline strip and a plain-text detail panel.
package render

import (
	"strings"

	"github.com/runnerr0/geoword/internal/config"
)

// Options sets the canvas size and palette of rendered SVG.
type Options struct {
	Width      int
	Height     int
	Primary    string
	Node       string
	Background string
	FontFamily string
}

// DefaultOptions mirrors the render section of config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Render)
}

// OptionsFromConfig copies cfg, falling back to defaults for unset fields.
func OptionsFromConfig(cfg config.RenderConfig) Options {
	o := Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Primary:    cfg.Primary,
		Node:       cfg.Node,
		Background: cfg.Background,
		FontFamily: "Inter, Helvetica, Arial, sans-serif",
	}
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 540
	}
	if o.Primary == "" {
		o.Primary = "#7448C8"
	}
	if o.Node == "" {
		o.Node = "#FFFFFF"
	}
	if o.Background == "" {
		o.Background = "#0b0e14"
	}
	return o
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/playback"
)

// EmptyHint is shown when no stage is active.
const EmptyHint = "Search for a word to explore its history."

// Panel is the detail view for the active stage.
type Panel struct {
	ModernWord string `json:"modernWord"`
	Summary    string `json:"etymologySummary"`

	Era         string `json:"era"`
	Language    string `json:"language"`
	Form        string `json:"form"`
	Region      string `json:"region"`
	Description string `json:"description"`

	Rank         int    `json:"rank"`
	Position     int    `json:"position"`
	Total        int    `json:"total"`
	RootLanguage string `json:"rootLanguage"`
	InitialForm  string `json:"initialForm"`
	MinEra       string `json:"minEra"`
	MaxEra       string `json:"maxEra"`
	Playing      bool   `json:"isPlaying"`
	HasStage     bool   `json:"hasStage"`
}

// NewPanel assembles the panel for evo at the state in snap. evo may be nil
// before the first successful search.
func NewPanel(evo *etymology.WordEvolution, snap playback.Snapshot) Panel {
	var p Panel
	if evo != nil {
		p.ModernWord = evo.ModernWord
		p.Summary = evo.EtymologySummary
	}
	p.Playing = snap.Playing

	st, ok := snap.ActiveStage()
	if !ok {
		return p
	}
	p.HasStage = true
	p.Era = etymology.FormatYear(st.Year)
	p.Language = st.Language
	p.Form = st.Word
	p.Region = st.Region
	p.Description = st.Description
	p.Rank = snap.Timeline.IndexOf(st.Year) + 1
	p.Position, p.Total = snap.Progress()

	if root, ok := snap.Timeline.Root(); ok {
		p.RootLanguage = root.Language
		p.InitialForm = root.Word
	}
	minYear, maxYear := snap.Timeline.YearSpan()
	p.MinEra = etymology.FormatYear(minYear)
	p.MaxEra = etymology.FormatYear(maxYear)
	return p
}

// StageLabel renders "Stage i of n".
func (p Panel) StageLabel() string {
	return fmt.Sprintf("Stage %d of %d", p.Position, p.Total)
}

// WriteText prints the panel as plain text.
func WriteText(w io.Writer, p Panel) error {
	var b strings.Builder
	if p.ModernWord != "" {
		fmt.Fprintf(&b, "%s (modern)\n", p.ModernWord)
		if p.Summary != "" {
			fmt.Fprintf(&b, "  %q\n", p.Summary)
		}
		b.WriteString("\n")
	}
	if !p.HasStage {
		b.WriteString(EmptyHint + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s  %s\n", p.Era, p.Language)
	fmt.Fprintf(&b, "  %q\n", p.Form)
	if p.Region != "" {
		fmt.Fprintf(&b, "  Region: %s\n", p.Region)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "  %s\n", p.Description)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Chronological rank: Stage %d\n", p.Rank)
	fmt.Fprintf(&b, "  Root language:      %s\n", p.RootLanguage)
	fmt.Fprintf(&b, "  Initial form:       %s\n", p.InitialForm)
	fmt.Fprintf(&b, "\n%s  [%s .. %s]\n", p.StageLabel(), p.MinEra, p.MaxEra)

	_, err := io.WriteString(w, b.String())
	return err
}

// ProgressBar draws one marker per stage, filled once its year has been
// reached, e.g. "●──●──○──○".
func ProgressBar(snap playback.Snapshot) string {
	if snap.Empty() {
		return ""
	}
	marks := make([]string, 0, len(snap.Timeline))
	for _, st := range snap.Timeline {
		switch {
		case snap.HasActive && st.Year == snap.ActiveYear:
			marks = append(marks, "◉")
		case snap.HasActive && st.Year <= snap.ActiveYear:
			marks = append(marks, "●")
		default:
			marks = append(marks, "○")
		}
	}
	return strings.Join(marks, "──")
}

// WriteMarkdown prints a whole trace as a markdown document, one section per
// stage.
func WriteMarkdown(w io.Writer, evo etymology.WordEvolution) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", evo.ModernWord)
	if evo.EtymologySummary != "" {
		fmt.Fprintf(&b, "> %s\n\n", evo.EtymologySummary)
	}
	fmt.Fprintf(&b, "Origin: *%s*\n\n", evo.OriginWord)
	for i, st := range evo.Timeline {
		fmt.Fprintf(&b, "## %d. %s, %s\n\n", i+1, etymology.FormatYear(st.Year), st.Language)
		fmt.Fprintf(&b, "- Form: `%s`\n", st.Word)
		if st.Region != "" {
			fmt.Fprintf(&b, "- Region: %s\n", st.Region)
		}
		fmt.Fprintf(&b, "- Location: %.4f, %.4f\n", st.Latitude, st.Longitude)
		if st.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", st.Description)
		}
		b.WriteString("\n")
	}
	for _, leg := range evo.Timeline.Legs() {
		fmt.Fprintf(&b, "- %s → %s: %.0f km\n", leg.From.Word, leg.To.Word, leg.Distance/1000)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

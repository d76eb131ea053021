// Package tui is the interactive terminal player.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/geoword/internal/playback"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/session"
)

// scrubSteps is how many [ or ] presses cross the whole timeline.
const scrubSteps = 20

type snapshotMsg struct {
	snap playback.Snapshot
	ok   bool
}

type stateMsg struct {
	state session.State
	ok    bool
}

// Model renders the controller and session state. Key presses are turned
// into controller and session calls; the model never changes the active
// year itself, it waits for the next snapshot.
type Model struct {
	ctx        context.Context
	session    *session.Session
	controller *playback.Controller

	snaps  <-chan playback.Snapshot
	states <-chan session.State

	snap  playback.Snapshot
	state session.State

	input     textinput.Model
	spinner   spinner.Model
	searching bool

	width int
}

// New subscribes to ctrl and sess; the returned func drops both
// subscriptions.
func New(ctx context.Context, sess *session.Session, ctrl *playback.Controller) (Model, func()) {
	snaps, cancelSnaps := ctrl.Subscribe()
	states, cancelStates := sess.Subscribe()

	in := textinput.New()
	in.Placeholder = "Trace any word (e.g. 'Ocean', 'Zero', 'Avatar')..."
	in.CharLimit = 64
	in.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = languageStyle

	m := Model{
		ctx:        ctx,
		session:    sess,
		controller: ctrl,
		snaps:      snaps,
		states:     states,
		snap:       ctrl.Snapshot(),
		state:      sess.State(),
		input:      in,
		spinner:    sp,
		width:      80,
	}
	return m, func() {
		cancelSnaps()
		cancelStates()
	}
}

func waitForSnapshot(ch <-chan playback.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{snap: snap, ok: ok}
	}
}

func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		return stateMsg{state: st, ok: ok}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.snaps),
		waitForState(m.states),
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		if !msg.ok {
			return m, nil
		}
		m.snap = msg.snap
		return m, waitForSnapshot(m.snaps)

	case stateMsg:
		if !msg.ok {
			return m, nil
		}
		m.state = msg.state
		return m, waitForState(m.states)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.searching = false
		m.input.Blur()
		return m, nil
	case "enter":
		word := strings.TrimSpace(m.input.Value())
		m.searching = false
		m.input.Blur()
		m.input.SetValue("")
		if word != "" && m.state.Status != session.StatusLoading {
			m.state = m.session.Begin(m.ctx, word)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.input.Focus()
	case " ", "p":
		m.controller.TogglePlay()
	case "right", "l":
		m.controller.Next()
	case "left", "h":
		m.controller.Prev()
	case "home", "0":
		m.controller.Reset()
	case "[":
		m.scrub(-1)
	case "]":
		m.scrub(1)
	case "R":
		if m.state.Status == session.StatusError {
			m.state = m.session.Begin(m.ctx, m.session.DefaultWord())
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(m.snap.Years) {
				m.controller.Select(m.snap.Years[i])
			}
		}
	}
	return m, nil
}

// scrub moves the slider by one step and snaps to the nearest stage year.
func (m Model) scrub(dir int) {
	if m.snap.Empty() || !m.snap.HasActive {
		return
	}
	minYear, maxYear := m.snap.Timeline.YearSpan()
	step := (maxYear - minYear) / scrubSteps
	if step < 1 {
		step = 1
	}
	// A step shorter than the gap to the neighbour would snap straight back.
	target := m.snap.ActiveYear + dir*step
	if i := m.snap.ActiveIndex + dir; i >= 0 && i < len(m.snap.Years) {
		next := m.snap.Years[i]
		if (dir > 0 && target < next) || (dir < 0 && target > next) {
			target = next
		}
	}
	m.controller.SeekNearest(float64(target))
}

func (m Model) View() string {
	var b strings.Builder

	header := headerStyle.Render("geoword")
	if m.state.Word != "" {
		header += mutedStyle.Render(" · " + m.state.Word)
	}
	b.WriteString(header + "\n\n")

	if m.searching {
		b.WriteString(m.input.View() + "\n\n")
	}

	switch m.state.Status {
	case session.StatusLoading:
		b.WriteString(m.spinner.View() + " Tracing linguistic roots across centuries...\n\n")
	case session.StatusError:
		b.WriteString(errorStyle.Render("Oops! Search failed") + "\n")
		b.WriteString(mutedStyle.Render(m.state.Message) + "\n")
		b.WriteString(helpStyle.Render("R return to dashboard") + "\n\n")
	}

	panel := render.NewPanel(m.state.Evolution, m.snap)
	if panel.ModernWord != "" {
		card := eraStyle.Render(panel.ModernWord) + "  " + languageStyle.Render("MODERN")
		if panel.Summary != "" {
			card += "\n" + mutedStyle.Render(fmt.Sprintf("%q", panel.Summary))
		}
		b.WriteString(modernCardStyle.Width(m.contentWidth()).Render(card) + "\n\n")
	}

	b.WriteString(m.detailView(panel) + "\n")
	if !m.snap.Empty() {
		b.WriteString(m.progressView(panel) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) detailView(p render.Panel) string {
	if !p.HasStage {
		return panelStyle.Width(m.contentWidth()).Render(mutedStyle.Italic(true).Render(render.EmptyHint))
	}
	lines := []string{
		eraStyle.Render(p.Era) + "  " + languageStyle.Render(p.Language),
		formStyle.Render(fmt.Sprintf("%q", p.Form)),
	}
	if p.Region != "" {
		lines = append(lines, mutedStyle.Render(p.Region))
	}
	if p.Description != "" {
		lines = append(lines, "", p.Description)
	}
	lines = append(lines,
		"",
		mutedStyle.Render("Chronological rank ")+fmt.Sprintf("Stage %d", p.Rank),
		mutedStyle.Render("Root language      ")+p.RootLanguage,
		mutedStyle.Render("Initial form       ")+languageStyle.Render(p.InitialForm),
	)
	return panelStyle.Width(m.contentWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) progressView(p render.Panel) string {
	state := "▶ PLAY JOURNEY"
	if m.snap.Playing {
		state = "❚❚ PAUSE TOUR"
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		languageStyle.Render(state),
		"   ",
		eraStyle.Render(p.StageLabel()),
	)
	bar := progressStyle.Render(render.ProgressBar(m.snap))
	span := mutedStyle.Render(p.MinEra + " .. " + p.MaxEra)
	return top + "\n" + bar + "\n" + span
}

func (m Model) helpLine() string {
	if m.searching {
		return "enter search · esc cancel"
	}
	return "space play/pause · ←/→ step · [ ] scrub · 1-9 stage · home reset · / search · q quit"
}

func (m Model) contentWidth() int {
	if m.width < 40 {
		return 38
	}
	return m.width - 2
}

// Run starts the full-screen player and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, ctrl *playback.Controller) error {
	m, closeSubs := New(ctx, sess, ctrl)
	defer closeSubs()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run player: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/geoword/internal/etymology"
	"github.com/runnerr0/geoword/internal/render"
	"github.com/runnerr0/geoword/internal/session"
)

type traceJSON struct {
	ID        string                   `json:"id,omitempty"`
	Word      string                   `json:"word"`
	Cached    bool                     `json:"cached"`
	Evolution *etymology.WordEvolution `json:"evolution"`
	Panel     render.Panel             `json:"panel"`
}

// Execute implements the go-flags Commander interface for TraceCommand.
func (c *TraceCommand) Execute(args []string) error {
	a, err := setup(c.globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWith(context.Background(), a)
}

func (c *TraceCommand) executeWith(ctx context.Context, a *app) error {
	word := strings.TrimSpace(strings.Join(c.Args.Word, " "))
	if word == "" {
		return errors.New("a word is required")
	}

	sess, ctrl, err := a.player(c.NoCache, 0)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	st, err := sess.Search(ctx, word)
	if err != nil {
		a.logger.Debug("trace failed", "word", word, "error", err)
		return fmt.Errorf("%s (%w)", session.ErrorMessage, err)
	}
	if err := seekYear(ctrl, c.Year); err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	panel := render.NewPanel(st.Evolution, snap)

	if c.globals != nil && c.globals.JSON {
		return printJSON(traceJSON{
			ID:        st.TraceID,
			Word:      st.Word,
			Cached:    st.Cached,
			Evolution: st.Evolution,
			Panel:     panel,
		})
	}

	if err := render.WriteText(os.Stdout, panel); err != nil {
		return err
	}
	if bar := render.ProgressBar(snap); bar != "" {
		fmt.Println(bar)
	}
	for i, stage := range snap.Timeline {
		fmt.Printf("%2d. %-10s %-18s %s\n", i+1, etymology.FormatYear(stage.Year), stage.Language, stage.Word)
	}

	source := "fetched"
	if st.Cached {
		source = "from history"
	}
	if st.TraceID != "" {
		n := len(snap.Timeline)
		fmt.Printf("\n%d %s %s (%s)\n", n, plural(n, "stage", "stages"), source, st.TraceID)
	}
	return nil
}

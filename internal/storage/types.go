package storage

import (
	"time"

	"github.com/runnerr0/geoword/internal/etymology"
)

// Trace is one stored search result.
type Trace struct {
	ID         string
	Word       string // as typed by the user
	Provider   string // "gemini", "anthropic", "file", "import"
	FetchedAt  time.Time
	StageCount int
	Evolution  etymology.WordEvolution
}

// SearchQuery defines filters for searching traces. Results carry no
// timeline; load it with GetTrace.
type SearchQuery struct {
	Query    string
	Language string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// Stats holds aggregate statistics about the history database.
type Stats struct {
	TotalTraces       int64
	TotalStages       int64
	OldestTrace       time.Time
	NewestTrace       time.Time
	DatabaseSizeBytes int64
	TopLanguages      []LanguageCount
}

// LanguageCount pairs a stage language with the number of stages in it.
type LanguageCount struct {
	Language string
	Count    int64
}

package etymology

import "strings"

// Stage is one point in a word's history: the form it had in a given
// language, at a given place and year.
type Stage struct {
	Year        int     `json:"year"` // negative years are BCE
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Language    string  `json:"language"`
	Word        string  `json:"word"`
	Description string  `json:"description"`
	Region      string  `json:"region"`
}

// Timeline is the ordered sequence of stages for one traced word.
type Timeline []Stage

// WordEvolution is the complete result of one search.
type WordEvolution struct {
	OriginWord       string   `json:"originWord"`
	ModernWord       string   `json:"modernWord"`
	EtymologySummary string   `json:"etymologySummary"`
	Timeline         Timeline `json:"timeline"`
}

// Leg is the path between two consecutive stages.
type Leg struct {
	From     Stage
	To       Stage
	Distance float64 // meters along the great circle
}

// NormalizeWord folds a search term to the key used for caching and for
// collapsing duplicate searches.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.Join(strings.Fields(word), " "))
}

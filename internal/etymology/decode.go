package etymology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MaxYear bounds the magnitude of a stage year.
const MaxYear = 100000

type rawStage struct {
	Year        *float64 `json:"year"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Language    *string  `json:"language"`
	Word        *string  `json:"word"`
	Description *string  `json:"description"`
	Region      *string  `json:"region"`
}

type rawEvolution struct {
	OriginWord       *string     `json:"originWord"`
	ModernWord       *string     `json:"modernWord"`
	EtymologySummary *string     `json:"etymologySummary"`
	Timeline         *[]rawStage `json:"timeline"`
}

// Decode parses a model response into a WordEvolution. Every field of the
// response schema must be present with the right type; a partially formed
// object is rejected rather than passed through. The returned timeline is
// sorted by year.
func Decode(data []byte) (*WordEvolution, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrValidation)
	}

	var raw rawEvolution
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrValidation, err)
	}

	verr := &ValidationError{}
	evo := &WordEvolution{}

	requireString(verr, "originWord", raw.OriginWord, &evo.OriginWord)
	requireString(verr, "modernWord", raw.ModernWord, &evo.ModernWord)
	requireString(verr, "etymologySummary", raw.EtymologySummary, &evo.EtymologySummary)

	if raw.Timeline == nil {
		verr.add("timeline", "is required")
		return nil, verr
	}

	stages := make([]Stage, 0, len(*raw.Timeline))
	for i, rs := range *raw.Timeline {
		prefix := fmt.Sprintf("timeline[%d]", i)
		var s Stage

		if rs.Year == nil {
			verr.add(prefix+".year", "is required")
		} else if *rs.Year != math.Trunc(*rs.Year) {
			verr.add(prefix+".year", "must be an integer (got %v)", *rs.Year)
		} else if math.Abs(*rs.Year) > MaxYear {
			verr.add(prefix+".year", "must be within %d of year zero (got %v)", MaxYear, *rs.Year)
		} else {
			s.Year = int(*rs.Year)
		}
		requireFloat(verr, prefix+".latitude", rs.Latitude, &s.Latitude)
		requireFloat(verr, prefix+".longitude", rs.Longitude, &s.Longitude)
		requireString(verr, prefix+".language", rs.Language, &s.Language)
		requireString(verr, prefix+".word", rs.Word, &s.Word)
		requireString(verr, prefix+".description", rs.Description, &s.Description)
		requireString(verr, prefix+".region", rs.Region, &s.Region)

		stages = append(stages, s)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	evo.Timeline = SortByYear(stages)
	if err := evo.Validate(); err != nil {
		return nil, err
	}
	return evo, nil
}

// Validate checks the value invariants of an already typed WordEvolution:
// non-empty language and word per stage and coordinates inside the
// geographic range.
func (w *WordEvolution) Validate() error {
	verr := &ValidationError{}
	for i, s := range w.Timeline {
		prefix := fmt.Sprintf("timeline[%d]", i)
		if strings.TrimSpace(s.Language) == "" {
			verr.add(prefix+".language", "must not be empty")
		}
		if strings.TrimSpace(s.Word) == "" {
			verr.add(prefix+".word", "must not be empty")
		}
		if s.Latitude < -90 || s.Latitude > 90 {
			verr.add(prefix+".latitude", "out of range (got %v)", s.Latitude)
		}
		if s.Longitude < -180 || s.Longitude > 180 {
			verr.add(prefix+".longitude", "out of range (got %v)", s.Longitude)
		}
	}
	return verr.orNil()
}

func requireString(verr *ValidationError, field string, src *string, dst *string) {
	if src == nil {
		verr.add(field, "is required")
		return
	}
	*dst = *src
}

func requireFloat(verr *ValidationError, field string, src *float64, dst *float64) {
	if src == nil {
		verr.add(field, "is required")
		return
	}
	*dst = *src
}

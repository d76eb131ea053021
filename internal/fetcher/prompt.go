package fetcher

import "fmt"

func buildPrompt(word string) string {
	return fmt.Sprintf(`Trace the etymological journey of the word "%s" through time and geography. `+
		`Provide a detailed timeline of how it moved between languages and regions from its earliest known root to modern usage.`, word)
}

// schemaInstructions spells the response schema out for backends without
// structured output.
const schemaInstructions = `Output ONLY a valid JSON object matching this exact schema:
{
  "originWord": "<earliest known root form>",
  "modernWord": "<modern form>",
  "etymologySummary": "<short summary of the journey>",
  "timeline": [
    {
      "year": <integer, approximate year, negative for BCE>,
      "latitude": <number, geographic latitude of this linguistic stage>,
      "longitude": <number, geographic longitude of this linguistic stage>,
      "language": "<language name>",
      "word": "<the form of the word at this stage>",
      "description": "<brief historical context>",
      "region": "<region name>"
    }
  ]
}

Rules:
- Every field is required.
- Output ONLY the JSON, no markdown, no explanations.`

// responseSchema is the Gemini structured output schema.
var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"originWord":       map[string]any{"type": "STRING"},
		"modernWord":       map[string]any{"type": "STRING"},
		"etymologySummary": map[string]any{"type": "STRING"},
		"timeline": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"year":        map[string]any{"type": "INTEGER", "description": "Approximate year or century (use negative for BCE)"},
					"latitude":    map[string]any{"type": "NUMBER", "description": "Geographic latitude of this linguistic stage"},
					"longitude":   map[string]any{"type": "NUMBER", "description": "Geographic longitude of this linguistic stage"},
					"language":    map[string]any{"type": "STRING"},
					"word":        map[string]any{"type": "STRING", "description": "The form of the word at this stage"},
					"description": map[string]any{"type": "STRING", "description": "Brief historical context"},
					"region":      map[string]any{"type": "STRING"},
				},
				"required": []string{"year", "latitude", "longitude", "language", "word", "description", "region"},
			},
		},
	},
	"required": []string{"originWord", "modernWord", "etymologySummary", "timeline"},
}

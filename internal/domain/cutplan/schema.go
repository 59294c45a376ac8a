package cutplan

// Schema is the JSON schema an external planner is asked to satisfy.
func Schema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"model_version", "generated_at", "notes", "cuts"},
		"properties": map[string]any{
			"model_version": map[string]any{"type": "string"},
			"generated_at":  map[string]any{"type": "string"},
			"notes":         map[string]any{"type": "string"},
			"cuts": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"cut_id", "source_segment_id", "start_ms", "end_ms", "justification"},
					"properties": map[string]any{
						"cut_id":            map[string]any{"type": "string"},
						"source_segment_id": nullableString,
						"start_ms":          map[string]any{"type": "integer", "minimum": 0},
						"end_ms":            map[string]any{"type": "integer", "minimum": 0},
						"justification":     nullableString,
					},
				},
			},
		},
	}
}

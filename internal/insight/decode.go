package insight

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/llm"
)

// The model's structured output is untrusted text. Each payload is validated
// against a schema before it is decoded into a typed value; any mismatch is
// a malformed-output failure, never a crash.

var endScreenSchema = jsonschema.MustCompileString("endscreen.schema.json", `{
	"type": "object",
	"required": ["validation", "reflection", "themes", "encouragement", "emotionalTone"],
	"properties": {
		"validation":        {"type": "string", "minLength": 1},
		"reflection":        {"type": "string", "minLength": 1},
		"themes":            {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"encouragement":     {"type": "string", "minLength": 1},
		"keyMoment":         {"type": "string"},
		"emotionalTone":     {"type": "string", "enum": ["calm", "hopeful", "relieved", "understood", "lighter", "clearer"]},
		"suggestedNextStep": {"type": "string"}
	}
}`)

var memoryDeltaSchema = jsonschema.MustCompileString("memorydelta.schema.json", `{
	"type": "object",
	"properties": {
		"facts":       {"type": "array", "items": {"type": "string"}},
		"preferences": {"type": "array", "items": {"type": "string"}},
		"topics":      {"type": "array", "items": {"type": "string"}}
	}
}`)

var sentimentSchema = jsonschema.MustCompileString("sentiment.schema.json", `{
	"type": "object",
	"required": ["sentiment", "confidence", "summary"],
	"properties": {
		"sentiment":  {"type": "string", "enum": ["positive", "negative", "neutral", "mixed"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"summary":    {"type": "string"}
	}
}`)

// validate extracts the JSON object from raw model output and checks it
// against the schema before unmarshalling into out.
func validate(raw string, schema *jsonschema.Schema, out any) error {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return fmt.Errorf("%w: no JSON object in model output", domain.ErrMalformedOutput)
	}

	var untyped any
	if err := json.Unmarshal([]byte(payload), &untyped); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if err := schema.Validate(untyped); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	return nil
}

func decodeEndScreen(raw string) (*domain.EndScreen, error) {
	var artifact domain.EndScreen
	if err := validate(raw, endScreenSchema, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func decodeMemoryDelta(raw string) (*domain.MemoryDelta, error) {
	var delta domain.MemoryDelta
	if err := validate(raw, memoryDeltaSchema, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func decodeSentiment(raw string) (*domain.Sentiment, error) {
	var sentiment domain.Sentiment
	if err := validate(raw, sentimentSchema, &sentiment); err != nil {
		return nil, err
	}
	return &sentiment, nil
}

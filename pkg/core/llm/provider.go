// Package llm contains the model providers used to generate report sections.
// Every provider speaks the same Provider interface so the analysis engine
// never needs to know which vendor is behind a section.
package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
//
// options is a free-form bag; recognized keys:
//
//	"model"        string  - override the provider's default model
//	"max_tokens"   int     - response token budget
//	"temperature"  float64 - sampling temperature
//	"web_search"   bool    - enable the provider's search/grounding tool
//	"image_data"   []byte  - raw image bytes for vision analysis
//	"image_mime"   string  - MIME type of image_data (e.g. "image/png")
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// optString reads a string option with a fallback.
func optString(options map[string]interface{}, key, def string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// optInt reads an int option with a fallback. JSON-decoded option maps
// carry numbers as float64, so both forms are accepted.
func optInt(options map[string]interface{}, key string, def int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// optFloat reads a float option with a fallback.
func optFloat(options map[string]interface{}, key string, def float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// optBool reads a bool option.
func optBool(options map[string]interface{}, key string) bool {
	v, _ := options[key].(bool)
	return v
}

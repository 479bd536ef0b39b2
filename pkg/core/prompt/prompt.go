// Package prompt provides a centralized prompt library for LLM interactions.
// Prompts ship as built-in templates and can be overridden by JSON files
// loaded at runtime, making it easy to tune prompts without code changes.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID             string           `json:"id"`                   // Unique identifier (e.g., "research.overview")
	Name           string           `json:"name"`                 // Human-readable name
	Category       string           `json:"category"`             // Category (research, synthesis, etc.)
	Description    string           `json:"description"`          // Description of prompt purpose
	SystemPrompt   string           `json:"system_prompt"`        // The system prompt content
	UserPromptTmpl string           `json:"user_prompt_template"` // Go template for user prompt
	WebSearch      bool             `json:"web_search"`           // Whether this prompt needs live search
	Variables      []PromptVariable `json:"variables"`            // Variables used in template
	Version        string           `json:"version"`              // Version for tracking changes
}

// PromptVariable defines a variable used in a prompt template
type PromptVariable struct {
	Name        string `json:"name"`        // Variable name (e.g., "Ticker")
	Description string `json:"description"` // What this variable represents
	Required    bool   `json:"required"`    // Whether this variable is required
}

// Render executes the user prompt template with the given variables.
func (pt *PromptTemplate) Render(vars map[string]interface{}) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", pt.ID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", pt.ID, err)
	}

	return buf.String(), nil
}

// MustRender is like Render but panics on error. Intended for built-in
// prompts whose templates are validated by tests.
func (pt *PromptTemplate) MustRender(vars map[string]interface{}) string {
	out, err := pt.Render(vars)
	if err != nil {
		panic(err)
	}
	return out
}

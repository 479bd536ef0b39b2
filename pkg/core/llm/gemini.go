package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini models.
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash-exp"
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

// GenerateResponse sends a generateContent request to the Gemini API using
// the official GenAI SDK. When options["web_search"] is set, Google Search
// grounding is enabled and any grounding citations are appended as a
// Sources list. Image payloads are routed to the vision client.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if img, ok := options["image_data"].([]byte); ok && len(img) > 0 {
		vision := &GeminiVisionProvider{Model: p.Model}
		return vision.GenerateResponse(ctx, prompt, systemPrompt, options)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	model = optString(options, "model", model)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(optFloat(options, "temperature", 0.3))),
	}
	if maxTokens := optInt(options, "max_tokens", 0); maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	if optBool(options, "web_search") {
		config.Tools = []*genai.Tool{
			{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
		}
	}

	generate := func() (string, error) {
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", fmt.Errorf("gemini generation failed: %w", err)
		}

		text := result.Text()

		// Append grounding citations if the search tool surfaced any.
		if len(result.Candidates) > 0 {
			cand := result.Candidates[0]
			if cand.GroundingMetadata != nil && len(cand.GroundingMetadata.GroundingChunks) > 0 {
				var citations []string
				for _, chunk := range cand.GroundingMetadata.GroundingChunks {
					if chunk.Web != nil {
						citations = append(citations, fmt.Sprintf("[%s](%s)", chunk.Web.Title, chunk.Web.URI))
					}
				}
				if len(citations) > 0 {
					text = fmt.Sprintf("%s\n\n**Sources:**\n%s", text, strings.Join(citations, "\n"))
				}
			}
		}

		return text, nil
	}

	return callWithRetry(ctx, "gemini", generate, func(err error) bool {
		return strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
	})
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}

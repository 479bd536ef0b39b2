package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiVisionProvider analyzes images (chart screenshots, scanned pages)
// with Gemini multimodal models. It uses the generative-ai-go SDK, whose
// ImageData part type carries inline image bytes.
type GeminiVisionProvider struct {
	Model string
}

var _ Provider = (*GeminiVisionProvider)(nil)

// GenerateResponse sends the image in options["image_data"] together with
// the prompt. Without an image it degrades to a plain text call.
func (p *GeminiVisionProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	modelName := p.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash-exp"
	}
	modelName = optString(options, "model", modelName)

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini vision client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(optFloat(options, "temperature", 0.3)))
	if maxTokens := optInt(options, "max_tokens", 0); maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	fullPrompt := prompt
	if systemPrompt != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", systemPrompt, prompt)
	}

	parts := []genai.Part{}
	if img, ok := options["image_data"].([]byte); ok && len(img) > 0 {
		parts = append(parts, genai.ImageData(imageFormat(optString(options, "image_mime", "image/png")), img))
	}
	parts = append(parts, genai.Text(fullPrompt))

	generate := func() (string, error) {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini vision generation failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("gemini vision returned no candidates")
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		return sb.String(), nil
	}

	return callWithRetry(ctx, "gemini-vision", generate, func(err error) bool {
		return strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
	})
}

func (p *GeminiVisionProvider) AdaptInstructions(raw string) string {
	return raw
}

// imageFormat maps a MIME type to the bare format string ImageData expects.
func imageFormat(mime string) string {
	if i := strings.Index(mime, "/"); i >= 0 {
		return mime[i+1:]
	}
	return "png"
}

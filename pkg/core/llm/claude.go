package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider implements the Provider interface for Anthropic's Claude
// models via the official SDK. It supports the web search tool and inline
// base64 images for chart analysis.
type ClaudeProvider struct {
	Model string // e.g. "claude-sonnet-4-20250514"
}

var _ Provider = (*ClaudeProvider)(nil)

// GenerateResponse sends a Messages API request to Claude.
func (p *ClaudeProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model := p.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	model = optString(options, "model", model)

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var blocks []anthropic.ContentBlockParamUnion
	if img, ok := options["image_data"].([]byte); ok && len(img) > 0 {
		mime := optString(options, "image_mime", "image/png")
		blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(img)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(optInt(options, "max_tokens", 8192)),
		Temperature: anthropic.Float(optFloat(options, "temperature", 0.3)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	if optBool(options, "web_search") {
		params.Tools = []anthropic.ToolUnionParam{
			{
				OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
					MaxUses: anthropic.Int(5),
				},
			},
		}
	}

	generate := func() (string, error) {
		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("claude generation failed: %w", err)
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("claude returned no text content")
		}
		return sb.String(), nil
	}

	return callWithRetry(ctx, "claude", generate, isClaudeRateLimit)
}

func (p *ClaudeProvider) AdaptInstructions(raw string) string {
	return raw
}

func isClaudeRateLimit(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 529
	}
	return strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "rate_limit")
}

package prompt

import (
	"strings"
	"testing"
)

func TestBuiltinsRegistered(t *testing.T) {
	r := Get()

	ids := []string{
		PromptIDs.Overview,
		PromptIDs.Financials,
		PromptIDs.Competitive,
		PromptIDs.Sentiment,
		PromptIDs.Technical,
		PromptIDs.Supplemental,
		PromptIDs.Synthesis,
	}

	for _, id := range ids {
		if _, err := r.GetPrompt(id); err != nil {
			t.Errorf("expected built-in prompt %s: %v", id, err)
		}
	}

	if got := r.Count(); got < len(ids) {
		t.Errorf("expected at least %d prompts, got %d", len(ids), got)
	}
}

func TestRenderOverview(t *testing.T) {
	pt, err := Get().GetPrompt(PromptIDs.Overview)
	if err != nil {
		t.Fatal(err)
	}

	out, err := pt.Render(map[string]interface{}{
		"Ticker":  "AAPL",
		"Company": "Apple Inc.",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if !strings.Contains(out, "Apple Inc. (AAPL)") {
		t.Errorf("rendered prompt missing company header: %q", out[:80])
	}
	if !strings.Contains(out, "Business Description") {
		t.Error("rendered prompt missing section structure")
	}
}

func TestRenderSynthesisIncludesAllSections(t *testing.T) {
	pt, err := Get().GetPrompt(PromptIDs.Synthesis)
	if err != nil {
		t.Fatal(err)
	}

	out, err := pt.Render(map[string]interface{}{
		"Ticker":       "TSLA",
		"Company":      "Tesla, Inc.",
		"Overview":     "OVERVIEW_TEXT",
		"Financials":   "FINANCIAL_TEXT",
		"Competitive":  "COMPETITIVE_TEXT",
		"Sentiment":    "SENTIMENT_TEXT",
		"Technical":    "TECHNICAL_TEXT",
		"Supplemental": "No supplemental materials provided.",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{
		"OVERVIEW_TEXT", "FINANCIAL_TEXT", "COMPETITIVE_TEXT",
		"SENTIMENT_TEXT", "TECHNICAL_TEXT",
		"[Note: Chart will be inserted separately]",
		"**Recommendation:** **[Strong Buy / Buy / Hold / Sell / Strong Sell]**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("synthesis prompt missing %q", want)
		}
	}
}

func TestAllTemplatesParse(t *testing.T) {
	vars := map[string]interface{}{
		"Ticker": "T", "Company": "C", "FinancialData": "f",
		"PriceData": "p", "SourceName": "s", "Content": "c",
		"Overview": "o", "Financials": "f", "Competitive": "c",
		"Sentiment": "s", "Technical": "t", "Supplemental": "s",
	}
	for _, pt := range builtinPrompts {
		if _, err := pt.Render(vars); err != nil {
			t.Errorf("prompt %s failed to render: %v", pt.ID, err)
		}
	}
}

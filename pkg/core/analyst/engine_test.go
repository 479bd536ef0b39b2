package analyst

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/llm"
)

// stubProvider records prompts and returns canned responses keyed on
// prompt content.
type stubProvider struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	respond func(prompt string) string
}

func (s *stubProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()

	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return "", errors.New("stub failure")
	}
	if s.respond != nil {
		return s.respond(prompt), nil
	}
	return "STUB_RESPONSE", nil
}

func (s *stubProvider) AdaptInstructions(raw string) string { return raw }

func newTestEngine(p llm.Provider) *Engine {
	mgr := agent.NewManagerWithProviders(
		agent.Config{ActiveProvider: "stub"},
		map[string]llm.Provider{"stub": p},
	)
	return NewEngine(mgr).WithPacing(Pacing{})
}

func TestRunFullPipeline(t *testing.T) {
	stub := &stubProvider{respond: func(p string) string {
		if strings.Contains(p, "compiling a final investment research report") {
			return "# Acme Corp (ACME)\nFinal report."
		}
		return "section output"
	}}
	e := newTestEngine(stub)

	var progressSteps []string
	res, err := e.Run(context.Background(), Request{
		Ticker:        "ACME",
		Company:       "Acme Corp",
		FinancialData: "Revenue: $1B",
		PriceData:     "Current Price: $10.00",
		Progress: func(step, status, detail string) {
			progressSteps = append(progressSteps, step+":"+status)
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Overview != "section output" || res.Technical != "section output" {
		t.Errorf("unexpected section outputs: %+v", res)
	}
	if res.Supplemental != "No supplemental materials provided." {
		t.Errorf("supplemental = %q", res.Supplemental)
	}
	if !strings.Contains(res.FinalReport, "Final report.") {
		t.Errorf("final report = %q", res.FinalReport)
	}

	// 5 sections + synthesis, no supplemental calls
	if len(stub.calls) != 6 {
		t.Errorf("expected 6 LLM calls, got %d", len(stub.calls))
	}

	joined := strings.Join(progressSteps, ",")
	for _, want := range []string{"overview:started", "overview:done", "technical:done", "synthesis:done"} {
		if !strings.Contains(joined, want) {
			t.Errorf("progress missing %q in %s", want, joined)
		}
	}
}

func TestRunStepFailureBecomesPlaceholder(t *testing.T) {
	stub := &stubProvider{failOn: "sentiment analysis"}
	e := newTestEngine(stub)

	res, err := e.Run(context.Background(), Request{Ticker: "ACME", Company: "Acme Corp"})
	if err != nil {
		t.Fatalf("Run should survive a step failure: %v", err)
	}

	if !strings.HasPrefix(res.Sentiment, "[Analysis failed:") {
		t.Errorf("sentiment = %q, want failure placeholder", res.Sentiment)
	}
	if res.Overview == "" || strings.HasPrefix(res.Overview, "[Analysis failed:") {
		t.Errorf("other sections should succeed, overview = %q", res.Overview)
	}
	if res.FinalReport == "" {
		t.Error("synthesis should still run after a failed step")
	}
}

func TestRunSupplementals(t *testing.T) {
	stub := &stubProvider{}
	e := newTestEngine(stub)

	res, err := e.Run(context.Background(), Request{
		Ticker:  "ACME",
		Company: "Acme Corp",
		Supplementals: []Supplemental{
			{Name: "thesis.pdf", Kind: "text", Content: "Long thesis."},
			{Name: "chart.png", Kind: "image", Image: []byte{1, 2, 3}, MediaType: "image/png"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(res.Supplemental, "### thesis.pdf") {
		t.Error("missing text supplemental header")
	}
	if !strings.Contains(res.Supplemental, "### chart.png") {
		t.Error("missing image supplemental header")
	}
	// 5 sections + 2 supplementals + synthesis
	if len(stub.calls) != 8 {
		t.Errorf("expected 8 LLM calls, got %d", len(stub.calls))
	}
}

func TestRunRequiresTicker(t *testing.T) {
	e := newTestEngine(&stubProvider{})
	if _, err := e.Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for missing ticker")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubProvider{failOn: "investment research report"}
	e := newTestEngine(stub)
	if _, err := e.Run(ctx, Request{Ticker: "ACME"}); err == nil {
		t.Fatal("expected error when context is already canceled")
	}
}

func TestTruncate(t *testing.T) {
	short := "Short text."
	if got := Truncate(short, 100); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	// Sentence boundary inside the last 30% of the window
	long := strings.Repeat("x", 80) + ". " + strings.Repeat("y", 40)
	got := Truncate(long, 100)
	if !strings.HasSuffix(got, "[... output truncated for efficiency ...]") {
		t.Errorf("missing truncation marker: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("x", 80)+".") {
		t.Error("should cut at the sentence boundary")
	}
	if strings.Contains(strings.TrimSuffix(got, "\n\n[... output truncated for efficiency ...]"), "y") {
		t.Error("text after the boundary should be dropped")
	}

	// No boundary: hard cut at maxChars
	raw := strings.Repeat("z", 200)
	got = Truncate(raw, 100)
	if !strings.HasPrefix(got, strings.Repeat("z", 100)+"\n\n[...") {
		t.Errorf("expected hard cut, got %q", got[:110])
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	// 100 two-byte runes; a cut at 101 lands mid-rune.
	text := strings.Repeat("é", 100)
	got := Truncate(text, 101)

	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got[:20])
	}
	if want := 50; strings.Count(got, "é") != want {
		t.Errorf("kept %d runes, want %d", strings.Count(got, "é"), want)
	}
	if !strings.HasSuffix(got, "[... output truncated for efficiency ...]") {
		t.Errorf("missing truncation marker: %q", got)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/analyst"
	"equity_research/pkg/core/fileproc"
	"equity_research/pkg/core/llm"
	"equity_research/pkg/core/marketdata"
)

type stubMarket struct {
	snapshotErr error
	historyErr  error
	revenue     float64 // TTM revenue for the snapshot, default $2B
}

func (s *stubMarket) FetchSnapshot(ctx context.Context, ticker string) (*marketdata.Snapshot, error) {
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	price := 123.45
	revenue := s.revenue
	if revenue == 0 {
		revenue = 2e9
	}
	return &marketdata.Snapshot{
		Ticker:       ticker,
		Company:      "Acme Corporation",
		Sector:       "Technology",
		CurrentPrice: &price,
		Metrics:      marketdata.Metrics{TotalRevenue: &revenue},
	}, nil
}

func (s *stubMarket) History(ctx context.Context, ticker, rng string) ([]marketdata.Candle, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	candles := make([]marketdata.Candle, 60)
	base := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := 100.0 + float64(i)
		candles[i] = marketdata.Candle{
			Date:   base.AddDate(0, 0, i),
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return candles, nil
}

func (s *stubMarket) SearchTicker(ctx context.Context, companyName string) (string, error) {
	return "ACME", nil
}

type stubProvider struct{}

func (stubProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	if strings.Contains(prompt, "compiling a final investment research report") {
		return "# Acme Corporation (ACME)\n\n## Technical Analysis\n\n**TA Grade: B**\n\n[Note: Chart will be inserted separately]\n\n## Summary & Key Considerations\n\n**Recommendation:** **Buy** based on momentum.\n", nil
	}
	return "section output", nil
}

func (stubProvider) AdaptInstructions(raw string) string { return raw }

// countingProvider wraps stubProvider and counts how often it is called.
type countingProvider struct{ calls *int }

func (p countingProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	*p.calls++
	return stubProvider{}.GenerateResponse(ctx, prompt, systemPrompt, options)
}

func (p countingProvider) AdaptInstructions(raw string) string { return raw }

func newTestOrchestrator(market MarketData) *Orchestrator {
	mgr := agent.NewManagerWithProviders(
		agent.Config{ActiveProvider: "stub"},
		map[string]llm.Provider{"stub": stubProvider{}},
	)
	engine := analyst.NewEngine(mgr).WithPacing(analyst.Pacing{})
	return New(market, fileproc.NewProcessor(), engine, nil)
}

func TestGenerateReport(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{})

	var steps []string
	result, err := o.GenerateReport(context.Background(), Request{
		Ticker: "acme",
		Progress: func(step, status, detail string) {
			steps = append(steps, step+":"+status)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Ticker != "ACME" || result.Company != "Acme Corporation" {
		t.Errorf("identity = %s / %s", result.Ticker, result.Company)
	}
	if !strings.Contains(result.HTML, `<div class="chart-container">`) {
		t.Error("chart not embedded in HTML report")
	}
	if strings.Contains(result.HTML, "[Note: Chart will be inserted separately]") {
		t.Error("chart placeholder should be replaced")
	}
	if result.Metadata.TAGrade != "B" {
		t.Errorf("TAGrade = %q", result.Metadata.TAGrade)
	}
	if result.Metadata.Recommendation != "Buy" {
		t.Errorf("Recommendation = %q", result.Metadata.Recommendation)
	}
	if result.PreRevenue {
		t.Error("a $2B revenue company is not pre-revenue")
	}
	if result.Chart == nil || result.Chart.ShortTermTrend == "" {
		t.Errorf("chart summary = %+v", result.Chart)
	}
	if result.Sections == nil || result.Sections.Overview != "section output" {
		t.Error("section outputs missing")
	}
	if result.Persisted {
		t.Error("nothing should be persisted without a repo")
	}

	joined := strings.Join(steps, ",")
	for _, want := range []string{"data:started", "data:done", "synthesis:done", "report:done"} {
		if !strings.Contains(joined, want) {
			t.Errorf("progress missing %q in %s", want, joined)
		}
	}
}

func TestGenerateReportResolvesTicker(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{})
	result, err := o.GenerateReport(context.Background(), Request{Company: "Acme Corporation"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Ticker != "ACME" {
		t.Errorf("ticker = %q", result.Ticker)
	}
}

func TestGenerateReportSnapshotFailureAborts(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{snapshotErr: fmt.Errorf("yahoo says no")})
	if _, err := o.GenerateReport(context.Background(), Request{Ticker: "ACME"}); err == nil {
		t.Fatal("expected error when snapshot fetch fails")
	}
}

func TestGenerateReportSurvivesMissingHistory(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{historyErr: fmt.Errorf("no chart data")})
	result, err := o.GenerateReport(context.Background(), Request{Ticker: "ACME"})
	if err != nil {
		t.Fatal(err)
	}
	if result.ChartHTML != "" || result.Chart != nil {
		t.Error("no chart expected without history")
	}
	if result.Markdown == "" {
		t.Error("report should still be generated")
	}
}

func TestGenerateReportWithFiles(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{})
	result, err := o.GenerateReport(context.Background(), Request{
		Ticker:    "ACME",
		Files:     map[string][]byte{"notes.txt": []byte("short thesis")},
		FileOrder: []string{"notes.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Sections.Supplemental, "### notes.txt") {
		t.Errorf("supplemental = %q", result.Sections.Supplemental)
	}
}

func TestGenerateReportPreRevenue(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{revenue: 250_000})

	var details []string
	result, err := o.GenerateReport(context.Background(), Request{
		Ticker: "ACME",
		Progress: func(step, status, detail string) {
			if step == "data" {
				details = append(details, detail)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !result.PreRevenue {
		t.Error("expected pre-revenue flag for sub-$1M revenue")
	}
	joined := strings.Join(details, "\n")
	if !strings.Contains(joined, "pre-revenue company, analysis will focus on growth potential") {
		t.Errorf("missing pre-revenue notice in %q", joined)
	}
}

func TestGenerateReportProviderOverride(t *testing.T) {
	calls := 0
	mgr := agent.NewManagerWithProviders(
		agent.Config{ActiveProvider: "stub"},
		map[string]llm.Provider{
			"stub": stubProvider{},
			"alt":  countingProvider{calls: &calls},
		},
	)
	engine := analyst.NewEngine(mgr).WithPacing(analyst.Pacing{})
	o := New(&stubMarket{}, fileproc.NewProcessor(), engine, nil)

	result, err := o.GenerateReport(context.Background(), Request{Ticker: "ACME", Provider: "alt"})
	if err != nil {
		t.Fatal(err)
	}

	if calls == 0 {
		t.Error("requested provider was never used")
	}
	if result.Markdown == "" {
		t.Error("report should be generated")
	}
	if got := mgr.GetActiveProvider(); got != "stub" {
		t.Errorf("run override leaked into shared manager: active = %q", got)
	}
}

func TestGenerateReportUnknownProvider(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{})
	if _, err := o.GenerateReport(context.Background(), Request{Ticker: "ACME", Provider: "gpt-9"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestGenerateReportRequiresTicker(t *testing.T) {
	o := newTestOrchestrator(&stubMarket{})
	if _, err := o.GenerateReport(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

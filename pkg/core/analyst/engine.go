// Package analyst runs the sequenced research pipeline: five core analyses,
// optional supplemental material, then a synthesis pass that assembles the
// final report.
package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/prompt"
	"equity_research/pkg/core/utils"
)

// Truncation budgets, in characters. Synthesis inputs are cut harder than
// raw data blocks so the final prompt stays inside the context window.
const (
	maxFinancialData = 6000
	maxPriceData     = 4000
	maxSupplemental  = 5000

	maxOverviewOut     = 3000
	maxFinancialsOut   = 3000
	maxCompetitiveOut  = 2500
	maxSentimentOut    = 2500
	maxTechnicalOut    = 2500
	maxSupplementalOut = 2000
)

// Pacing controls the waits between LLM calls. Provider quotas are per
// minute, so consecutive search-heavy calls need breathing room.
type Pacing struct {
	AfterOverview    time.Duration
	AfterFinancials  time.Duration
	AfterCompetitive time.Duration
	AfterSentiment   time.Duration
	AfterTechnical   time.Duration
	BetweenFiles     time.Duration
	BeforeSynthesis  time.Duration
}

// DefaultPacing spreads the seven calls over several minutes.
func DefaultPacing() Pacing {
	return Pacing{
		AfterOverview:    15 * time.Second,
		AfterFinancials:  10 * time.Second,
		AfterCompetitive: 15 * time.Second,
		AfterSentiment:   15 * time.Second,
		AfterTechnical:   10 * time.Second,
		BetweenFiles:     10 * time.Second,
		BeforeSynthesis:  20 * time.Second,
	}
}

// Supplemental is one piece of uploaded research material, already
// extracted by the file processor.
type Supplemental struct {
	Name      string
	Kind      string // "text" or "image"
	Content   string
	Image     []byte
	MediaType string
}

// Request carries everything the pipeline needs for one run.
type Request struct {
	Ticker        string
	Company       string
	FinancialData string
	PriceData     string
	Supplementals []Supplemental
	Progress      ProgressFunc
}

// ProgressFunc receives step updates as the pipeline advances.
type ProgressFunc func(step, status, detail string)

// Results holds every intermediate output plus the synthesized report.
type Results struct {
	Overview     string `json:"overview"`
	Financials   string `json:"financials"`
	Competitive  string `json:"competitive"`
	Sentiment    string `json:"sentiment"`
	Technical    string `json:"technical"`
	Supplemental string `json:"supplemental"`
	FinalReport  string `json:"final_report"`
}

// Engine executes the pipeline against the configured agent manager.
type Engine struct {
	agents *agent.Manager
	pacing Pacing
}

func NewEngine(agents *agent.Manager) *Engine {
	return &Engine{agents: agents, pacing: DefaultPacing()}
}

// WithPacing overrides the default call spacing. Tests use a zero value.
func (e *Engine) WithPacing(p Pacing) *Engine {
	e.pacing = p
	return e
}

// WithProvider returns an engine whose calls all route to the named
// provider. The shared manager is untouched, so concurrent runs keep
// their own provider choice.
func (e *Engine) WithProvider(name string) (*Engine, error) {
	agents, err := e.agents.WithActiveProvider(name)
	if err != nil {
		return nil, err
	}
	return &Engine{agents: agents, pacing: e.pacing}, nil
}

type step struct {
	key      string
	promptID string
	detail   string
	delay    time.Duration
	vars     func(req Request) map[string]interface{}
	maxOut   int
	into     func(r *Results, out string)
}

// Run executes the full pipeline. Individual step failures become inline
// placeholders so one bad call never loses the rest of the report; only
// context cancellation aborts the run.
func (e *Engine) Run(ctx context.Context, req Request) (*Results, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if req.Company == "" {
		req.Company = req.Ticker
	}
	progress := req.Progress
	if progress == nil {
		progress = func(string, string, string) {}
	}

	results := &Results{}

	steps := []step{
		{
			key: "overview", promptID: prompt.PromptIDs.Overview,
			detail: "Analyzing company overview...", delay: e.pacing.AfterOverview,
			vars: func(req Request) map[string]interface{} {
				return map[string]interface{}{"Ticker": req.Ticker, "Company": req.Company}
			},
			into: func(r *Results, out string) { r.Overview = out },
		},
		{
			key: "financials", promptID: prompt.PromptIDs.Financials,
			detail: "Analyzing financials...", delay: e.pacing.AfterFinancials,
			vars: func(req Request) map[string]interface{} {
				return map[string]interface{}{
					"Ticker": req.Ticker, "Company": req.Company,
					"FinancialData": Truncate(req.FinancialData, maxFinancialData),
				}
			},
			into: func(r *Results, out string) { r.Financials = out },
		},
		{
			key: "competitive", promptID: prompt.PromptIDs.Competitive,
			detail: "Analyzing competitive positioning...", delay: e.pacing.AfterCompetitive,
			vars: func(req Request) map[string]interface{} {
				return map[string]interface{}{"Ticker": req.Ticker, "Company": req.Company}
			},
			into: func(r *Results, out string) { r.Competitive = out },
		},
		{
			key: "sentiment", promptID: prompt.PromptIDs.Sentiment,
			detail: "Analyzing news and sentiment...", delay: e.pacing.AfterSentiment,
			vars: func(req Request) map[string]interface{} {
				return map[string]interface{}{"Ticker": req.Ticker, "Company": req.Company}
			},
			into: func(r *Results, out string) { r.Sentiment = out },
		},
		{
			key: "technical", promptID: prompt.PromptIDs.Technical,
			detail: "Performing technical analysis...", delay: e.pacing.AfterTechnical,
			vars: func(req Request) map[string]interface{} {
				return map[string]interface{}{
					"Ticker": req.Ticker, "Company": req.Company,
					"PriceData": Truncate(req.PriceData, maxPriceData),
				}
			},
			into: func(r *Results, out string) { r.Technical = out },
		},
	}

	for i, s := range steps {
		progress(s.key, "started", s.detail)
		start := time.Now()

		out, err := e.runPromptStep(ctx, s.key, s.promptID, s.vars(req))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error().Str("step", s.key).Err(err).Msg("analysis step failed")
			out = fmt.Sprintf("[Analysis failed: %v]", err)
			progress(s.key, "error", out)
		} else {
			progress(s.key, "done", fmt.Sprintf("%s complete in %s", s.key, time.Since(start).Round(time.Second)))
		}
		s.into(results, out)

		if i < len(steps)-1 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return nil, err
			}
		}
	}

	supplemental, err := e.runSupplementals(ctx, req, progress)
	if err != nil {
		return nil, err
	}
	results.Supplemental = supplemental

	progress("synthesis", "started", "Preparing final synthesis (waiting for rate limit reset)...")
	if err := sleepCtx(ctx, e.pacing.BeforeSynthesis); err != nil {
		return nil, err
	}

	progress("synthesis", "started", "Synthesizing final report...")
	report, err := e.synthesize(ctx, req, results)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("report synthesis failed")
		report = fmt.Sprintf("[Report synthesis failed: %v]", err)
		progress("synthesis", "error", report)
	} else {
		progress("synthesis", "done", "Report synthesis complete")
	}
	results.FinalReport = report

	return results, nil
}

func (e *Engine) runPromptStep(ctx context.Context, agentType, promptID string, vars map[string]interface{}) (string, error) {
	pt, err := prompt.Get().GetPrompt(promptID)
	if err != nil {
		return "", err
	}
	userPrompt, err := pt.Render(vars)
	if err != nil {
		return "", err
	}

	options := map[string]interface{}{
		"max_tokens":  1500,
		"temperature": 0.3,
	}
	if pt.WebSearch {
		options["web_search"] = true
	}

	return e.agents.ExecutePrompt(ctx, agentType, userPrompt, pt.SystemPrompt, options)
}

// runSupplementals analyzes each upload in order, one call per file.
func (e *Engine) runSupplementals(ctx context.Context, req Request, progress ProgressFunc) (string, error) {
	if len(req.Supplementals) == 0 {
		return "No supplemental materials provided.", nil
	}

	var outputs []string
	for i, item := range req.Supplementals {
		progress("supplemental", "started",
			fmt.Sprintf("Analyzing supplemental file %d/%d...", i+1, len(req.Supplementals)))

		var out string
		var err error
		if item.Kind == "image" {
			out, err = e.analyzeImage(ctx, req, item)
		} else {
			out, err = e.runPromptStep(ctx, "supplemental", prompt.PromptIDs.Supplemental, map[string]interface{}{
				"Ticker": req.Ticker, "Company": req.Company,
				"SourceName": item.Name,
				"Content":    Truncate(item.Content, maxSupplemental),
			})
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Error().Str("file", item.Name).Err(err).Msg("supplemental analysis failed")
			out = fmt.Sprintf("[Analysis failed: %v]", err)
		}
		outputs = append(outputs, fmt.Sprintf("### %s\n%s", item.Name, out))

		if i < len(req.Supplementals)-1 {
			if err := sleepCtx(ctx, e.pacing.BetweenFiles); err != nil {
				return "", err
			}
		}
	}

	return strings.Join(outputs, "\n\n"), nil
}

func (e *Engine) analyzeImage(ctx context.Context, req Request, item Supplemental) (string, error) {
	userPrompt := fmt.Sprintf(`You are analyzing a chart or image uploaded as supplemental research material for %s (%s).

Source: %s

This image was provided as additional context for an investment analysis. Please analyze what you see and extract:

1. **Image Type & Content** - What does this image show?
2. **Key Takeaways** - Most important insights relevant to an investment thesis
3. **Thesis Impact** - Does this support a bullish case, bearish case, or neutral?

Be concise and focus on actionable insights.`, req.Company, req.Ticker, item.Name)

	mediaType := item.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	return e.agents.ExecutePrompt(ctx, "supplemental", userPrompt, "", map[string]interface{}{
		"max_tokens": 1000,
		"image_data": item.Image,
		"image_mime": mediaType,
	})
}

func (e *Engine) synthesize(ctx context.Context, req Request, r *Results) (string, error) {
	pt, err := prompt.Get().GetPrompt(prompt.PromptIDs.Synthesis)
	if err != nil {
		return "", err
	}

	userPrompt, err := pt.Render(map[string]interface{}{
		"Ticker":       req.Ticker,
		"Company":      req.Company,
		"Overview":     Truncate(orPlaceholder(r.Overview), maxOverviewOut),
		"Financials":   Truncate(orPlaceholder(r.Financials), maxFinancialsOut),
		"Competitive":  Truncate(orPlaceholder(r.Competitive), maxCompetitiveOut),
		"Sentiment":    Truncate(orPlaceholder(r.Sentiment), maxSentimentOut),
		"Technical":    Truncate(orPlaceholder(r.Technical), maxTechnicalOut),
		"Supplemental": Truncate(r.Supplemental, maxSupplementalOut),
	})
	if err != nil {
		return "", err
	}

	out, err := e.agents.ExecutePrompt(ctx, "synthesis", userPrompt, pt.SystemPrompt, map[string]interface{}{
		"max_tokens":  4000,
		"temperature": 0.3,
	})
	if err != nil {
		return "", err
	}

	out = utils.CleanMarkdown(out)
	if !utils.ValidateMarkdown(out) {
		log.Warn().Msg("synthesized report failed markdown validation")
	}
	return out, nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return "[Not available]"
	}
	return s
}

// Truncate cuts text to maxChars, preferring a sentence boundary when one
// falls in the last 30% of the window, and appends a marker. The hard cut
// backs up to a rune boundary so multi-byte text stays valid UTF-8.
func Truncate(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]
	for _, endChar := range []string{". ", ".\n", "! ", "?\n"} {
		if idx := strings.LastIndex(truncated, endChar); idx > maxChars*7/10 {
			truncated = truncated[:idx+1]
			break
		}
	}

	return truncated + "\n\n[... output truncated for efficiency ...]"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

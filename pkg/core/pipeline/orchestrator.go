// Package pipeline runs the full research flow end to end: market data,
// supplemental file extraction, the analysis prompt sequence, report
// assembly and optional persistence.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"equity_research/pkg/core/analyst"
	"equity_research/pkg/core/chart"
	"equity_research/pkg/core/fileproc"
	"equity_research/pkg/core/marketdata"
	"equity_research/pkg/core/report"
	"equity_research/pkg/core/store"
)

// Request describes one report generation run.
type Request struct {
	Ticker   string
	Company  string // optional, resolved from market data when empty
	Range    string // history range, default 1y
	Provider string // optional LLM provider override, scoped to this run

	Files     map[string][]byte
	FileOrder []string

	Progress analyst.ProgressFunc
}

// Result carries everything a caller might want from a finished run.
type Result struct {
	ID         uuid.UUID            `json:"id"`
	Ticker     string               `json:"ticker"`
	Company    string               `json:"company"`
	Markdown   string               `json:"markdown"`
	HTML       string               `json:"html"`
	ChartHTML  string               `json:"chart_html,omitempty"`
	Metadata   report.Metadata      `json:"metadata"`
	Sections   *analyst.Results     `json:"sections,omitempty"`
	Snapshot   *marketdata.Snapshot `json:"snapshot,omitempty"`
	Chart      *chart.Summary       `json:"chart_summary,omitempty"`
	PreRevenue bool                 `json:"pre_revenue"`
	Persisted  bool                 `json:"persisted"`
}

// MarketData is the slice of the market data client the pipeline needs.
type MarketData interface {
	FetchSnapshot(ctx context.Context, ticker string) (*marketdata.Snapshot, error)
	History(ctx context.Context, ticker, rng string) ([]marketdata.Candle, error)
	SearchTicker(ctx context.Context, companyName string) (string, error)
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	market MarketData
	files  *fileproc.Processor
	engine *analyst.Engine
	repo   *store.ReportRepo
}

// New builds an orchestrator. repo may be nil when persistence is off.
func New(market MarketData, files *fileproc.Processor, engine *analyst.Engine, repo *store.ReportRepo) *Orchestrator {
	return &Orchestrator{market: market, files: files, engine: engine, repo: repo}
}

// GenerateReport runs the whole pipeline for one ticker.
func (o *Orchestrator) GenerateReport(ctx context.Context, req Request) (*Result, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(step, status, detail string) {}
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" && req.Company != "" {
		progress("lookup", "started", "Resolving ticker for "+req.Company)
		found, err := o.market.SearchTicker(ctx, req.Company)
		if err != nil {
			progress("lookup", "error", err.Error())
			return nil, fmt.Errorf("resolving ticker for %q: %w", req.Company, err)
		}
		ticker = found
		progress("lookup", "done", "Resolved to "+ticker)
	}
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	// Market data. The snapshot is mandatory; price history degrades to a
	// chartless report when Yahoo declines the request.
	progress("data", "started", "Fetching market data for "+ticker)
	snapshot, err := o.market.FetchSnapshot(ctx, ticker)
	if err != nil {
		progress("data", "error", err.Error())
		return nil, fmt.Errorf("fetching market data for %s: %w", ticker, err)
	}

	company := req.Company
	if company == "" {
		company = snapshot.Company
	}
	if company == "" {
		company = ticker
	}

	rng := req.Range
	if rng == "" {
		rng = "1y"
	}
	candles, err := o.market.History(ctx, ticker, rng)
	if err != nil {
		log.Warn().Str("ticker", ticker).Err(err).Msg("price history unavailable, chart will be skipped")
		candles = nil
	}

	preRevenue := marketdata.IsPreRevenue(snapshot)
	dataDetail := fmt.Sprintf("Fetched snapshot and %d price bars", len(candles))
	if preRevenue {
		dataDetail += " (pre-revenue company, analysis will focus on growth potential)"
	}
	progress("data", "done", dataDetail)

	financialData := marketdata.FormatFinancials(snapshot)
	priceData := "Price data unavailable."
	if len(candles) > 0 {
		priceData = marketdata.FormatPrices(ticker, candles, 60)
	}

	// Supplemental files
	var supplementals []analyst.Supplemental
	if len(req.Files) > 0 {
		progress("files", "started", fmt.Sprintf("Processing %d uploaded files", len(req.Files)))
		order := req.FileOrder
		if len(order) == 0 {
			for name := range req.Files {
				order = append(order, name)
			}
		}
		for _, res := range o.files.ProcessAll(ctx, req.Files, order) {
			supplementals = append(supplementals, toSupplemental(res))
		}
		progress("files", "done", "Uploaded files processed")
	}

	engine := o.engine
	if req.Provider != "" {
		engine, err = o.engine.WithProvider(req.Provider)
		if err != nil {
			return nil, fmt.Errorf("selecting provider %q: %w", req.Provider, err)
		}
	}

	results, err := engine.Run(ctx, analyst.Request{
		Ticker:        ticker,
		Company:       company,
		FinancialData: financialData,
		PriceData:     priceData,
		Supplementals: supplementals,
		Progress:      progress,
	})
	if err != nil {
		return nil, err
	}

	// Chart and final documents
	chartHTML := ""
	var chartSummary *chart.Summary
	if len(candles) > 0 {
		builder := chart.NewBuilder(ticker, candles)
		var buf bytes.Buffer
		if err := builder.RenderHTML(&buf); err != nil {
			log.Warn().Str("ticker", ticker).Err(err).Msg("chart rendering failed")
		} else {
			chartHTML = buf.String()
		}
		if s, err := builder.Summarize(); err == nil {
			chartSummary = s
		}
	}

	progress("report", "started", "Assembling report documents")
	assembler := report.NewAssembler(ticker, company)
	html, err := assembler.HTMLReport(results.FinalReport, chartHTML)
	if err != nil {
		progress("report", "error", err.Error())
		return nil, fmt.Errorf("assembling HTML report: %w", err)
	}
	meta := report.ExtractMetadata(results.FinalReport)
	progress("report", "done", "Report assembled")

	out := &Result{
		ID:         uuid.New(),
		Ticker:     ticker,
		Company:    company,
		Markdown:   results.FinalReport,
		HTML:       html,
		ChartHTML:  chartHTML,
		Metadata:   meta,
		Sections:   results,
		Snapshot:   snapshot,
		Chart:      chartSummary,
		PreRevenue: preRevenue,
	}

	if o.repo != nil && store.Available() {
		progress("persist", "started", "Saving report")
		rec := &store.ReportRecord{
			ID:        out.ID,
			Ticker:    ticker,
			Company:   company,
			Markdown:  out.Markdown,
			HTML:      out.HTML,
			ChartHTML: chartHTML,
			Sections:  sectionMap(results),
			Metadata:  meta,
		}
		if err := o.repo.Save(ctx, rec); err != nil {
			log.Warn().Str("ticker", ticker).Err(err).Msg("failed to persist report")
			progress("persist", "error", err.Error())
		} else {
			out.Persisted = true
			progress("persist", "done", "Report saved")
		}
	}

	return out, nil
}

func toSupplemental(res fileproc.Result) analyst.Supplemental {
	s := analyst.Supplemental{
		Name:      res.Name,
		Kind:      string(res.Kind),
		Content:   res.Content,
		Image:     res.Image,
		MediaType: res.MediaType,
	}
	if res.Err != "" {
		s.Kind = string(fileproc.KindText)
		s.Content = "[" + res.Err + "]"
	}
	return s
}

func sectionMap(r *analyst.Results) map[string]string {
	return map[string]string{
		"overview":     r.Overview,
		"financials":   r.Financials,
		"competitive":  r.Competitive,
		"sentiment":    r.Sentiment,
		"technical":    r.Technical,
		"supplemental": r.Supplemental,
	}
}

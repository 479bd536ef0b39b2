// Package report provides HTTP API handlers for research report
// generation, streaming progress, downloads and history.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/fileproc"
	"equity_research/pkg/core/pipeline"
	corereport "equity_research/pkg/core/report"
	"equity_research/pkg/core/store"
)

// ProgressEvent represents a single SSE progress update
type ProgressEvent struct {
	Step     string `json:"step"`   // "data", "files", "overview", ..., "synthesis", "report", "complete", "error"
	Status   string `json:"status"` // "started", "done", "error"
	Detail   string `json:"detail"`
	TimingMs int64  `json:"timing_ms"`
	Data     any    `json:"data,omitempty"` // Final data on "complete"
}

var (
	orch     *pipeline.Orchestrator
	repo     *store.ReportRepo
	agentMgr *agent.Manager
)

// InitHandler wires the pipeline into the report endpoints. repo may be
// nil when persistence is disabled.
func InitHandler(o *pipeline.Orchestrator, r *store.ReportRepo, mgr *agent.Manager) {
	orch = o
	repo = r
	agentMgr = mgr
}

type generateRequest struct {
	Ticker   string `json:"ticker"`
	Company  string `json:"company"`
	Range    string `json:"range"`
	Provider string `json:"provider"`
}

// checkProvider validates a requested provider name. The override itself
// is carried in the pipeline request and scoped to that run, so one
// request's choice never leaks into another's.
func checkProvider(name string) error {
	if name == "" || agentMgr == nil {
		return nil
	}
	if agentMgr.GetProviderByName(name) == nil {
		return fmt.Errorf("provider %s not found", name)
	}
	return nil
}

// HandleGenerate runs the full pipeline synchronously. Accepts JSON or a
// multipart form with supplemental files under the "files" field.
func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, files, order, err := parseGenerateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkProvider(req.Provider); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := orch.GenerateReport(r.Context(), pipeline.Request{
		Ticker:    req.Ticker,
		Company:   req.Company,
		Range:     req.Range,
		Provider:  req.Provider,
		Files:     files,
		FileOrder: order,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleGenerateStream runs the pipeline with SSE progress updates.
// Supplemental file uploads are not supported over SSE; use POST
// /api/report/generate for those.
func HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	// SSE headers - must be set before any write
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sendEvent := func(event ProgressEvent) {
		data, _ := json.Marshal(event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	sendEvent(ProgressEvent{Step: "init", Status: "started", Detail: "Connection established"})

	ticker := r.URL.Query().Get("ticker")
	company := r.URL.Query().Get("company")
	rng := r.URL.Query().Get("range")
	if ticker == "" && company == "" {
		sendEvent(ProgressEvent{Step: "error", Status: "error", Detail: "Missing ticker or company parameter"})
		return
	}
	provider := r.URL.Query().Get("provider")
	if err := checkProvider(provider); err != nil {
		sendEvent(ProgressEvent{Step: "error", Status: "error", Detail: err.Error()})
		return
	}

	lastEvent := time.Now()
	progress := func(step, status, detail string) {
		now := time.Now()
		sendEvent(ProgressEvent{
			Step:     step,
			Status:   status,
			Detail:   detail,
			TimingMs: now.Sub(lastEvent).Milliseconds(),
		})
		lastEvent = now
	}

	startTime := time.Now()
	result, err := orch.GenerateReport(r.Context(), pipeline.Request{
		Ticker:   ticker,
		Company:  company,
		Range:    rng,
		Provider: provider,
		Progress: progress,
	})
	if err != nil {
		sendEvent(ProgressEvent{Step: "error", Status: "error", Detail: err.Error()})
		return
	}

	sendEvent(ProgressEvent{
		Step:     "complete",
		Status:   "done",
		Detail:   fmt.Sprintf("Report for %s generated", result.Ticker),
		TimingMs: time.Since(startTime).Milliseconds(),
		Data:     result,
	})
}

// HandleDownload serves a stored report as markdown, HTML or PDF.
// GET /api/report/download?id=<uuid>&format=html|pdf|md
func HandleDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if repo == nil || !store.Available() {
		http.Error(w, "Report storage is not configured", http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid or missing id parameter", http.StatusBadRequest)
		return
	}

	rec, err := repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "html"
	}
	filename := fmt.Sprintf("%s_report_%s", rec.Ticker, rec.CreatedAt.Format("2006-01-02"))

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".html"))
		io.WriteString(w, rec.HTML)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".md"))
		io.WriteString(w, rec.Markdown)
	case "pdf":
		assembler := corereport.NewAssembler(rec.Ticker, rec.Company)
		pdf, err := assembler.PDFReport(rec.Markdown)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
		w.Write(pdf)
	default:
		http.Error(w, "Unsupported format: "+format, http.StatusBadRequest)
	}
}

// HandleHistory lists stored reports.
// GET /api/report/history?ticker=AAPL&limit=20
func HandleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if repo == nil || !store.Available() {
		http.Error(w, "Report storage is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	summaries, err := repo.History(r.Context(), r.URL.Query().Get("ticker"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"reports": summaries})
}

// HandleSupportedTypes lists supplemental file extensions the processor
// accepts, for upload form validation.
func HandleSupportedTypes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"extensions": fileproc.SupportedExtensions()})
}

func parseGenerateRequest(r *http.Request) (generateRequest, map[string][]byte, []string, error) {
	var req generateRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			return req, nil, nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		req.Ticker = r.FormValue("ticker")
		req.Company = r.FormValue("company")
		req.Range = r.FormValue("range")
		req.Provider = r.FormValue("provider")

		files := make(map[string][]byte)
		var order []string
		if r.MultipartForm != nil {
			for _, fh := range r.MultipartForm.File["files"] {
				f, err := fh.Open()
				if err != nil {
					return req, nil, nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					return req, nil, nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
				}
				files[fh.Filename] = data
				order = append(order, fh.Filename)
			}
		}
		if req.Ticker == "" && req.Company == "" {
			return req, nil, nil, fmt.Errorf("missing ticker or company")
		}
		return req, files, order, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, nil, nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Ticker == "" && req.Company == "" {
		return req, nil, nil, fmt.Errorf("missing ticker or company")
	}
	return req, nil, nil, nil
}

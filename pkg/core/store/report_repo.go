package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"equity_research/pkg/core/report"
)

// ReportRecord is the persisted form of one finished research report.
// Everything except the key columns lives in a single JSONB blob so the
// report shape can evolve without migrations.
type ReportRecord struct {
	ID        uuid.UUID         `json:"id"`
	Ticker    string            `json:"ticker"`
	Company   string            `json:"company"`
	Markdown  string            `json:"markdown"`
	HTML      string            `json:"html"`
	ChartHTML string            `json:"chart_html,omitempty"`
	Sections  map[string]string `json:"sections,omitempty"`
	Metadata  report.Metadata   `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID        uuid.UUID `json:"id"`
	Ticker    string    `json:"ticker"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportRepo stores and retrieves research reports.
type ReportRepo struct{}

func NewReportRepo() *ReportRepo {
	return &ReportRepo{}
}

// Save upserts a report by id. A zero id gets a fresh one assigned.
func (r *ReportRepo) Save(ctx context.Context, rec *ReportRecord) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Ticker = strings.ToUpper(rec.Ticker)

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO research_reports (id, ticker, company, report_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			ticker = EXCLUDED.ticker,
			company = EXCLUDED.company,
			report_json = EXCLUDED.report_json;
	`
	if _, err := pool.Exec(ctx, query, rec.ID, rec.Ticker, rec.Company, jsonData, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get loads a report by id.
func (r *ReportRepo) Get(ctx context.Context, id uuid.UUID) (*ReportRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var jsonData []byte
	err := pool.QueryRow(ctx, `SELECT report_json FROM research_reports WHERE id = $1`, id).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no report found for id %s", id)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return unmarshalRecord(jsonData)
}

// Latest returns the most recent report for a ticker.
func (r *ReportRepo) Latest(ctx context.Context, ticker string) (*ReportRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT report_json FROM research_reports
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var jsonData []byte
	err := pool.QueryRow(ctx, query, strings.ToUpper(ticker)).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no report found for ticker %s", ticker)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return unmarshalRecord(jsonData)
}

// History lists stored reports, newest first. An empty ticker lists all.
func (r *ReportRepo) History(ctx context.Context, ticker string, limit int) ([]ReportSummary, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, ticker, company, created_at FROM research_reports
		WHERE ($1 = '' OR ticker = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.Ticker, &s.Company, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func unmarshalRecord(jsonData []byte) (*ReportRecord, error) {
	var rec ReportRecord
	if err := json.Unmarshal(jsonData, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report data: %w", err)
	}
	return &rec, nil
}

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func testAssembler() *Assembler {
	a := NewAssembler("nvda", "NVIDIA Corporation")
	a.now = func() time.Time { return time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC) }
	return a
}

const sampleReport = `# NVIDIA Corporation (NVDA)

## Executive Summary

Strong quarter driven by data center demand.

## Key Metrics Table

| Metric | Value |
|--------|-------|
| P/E | 45.2 |
| Market Cap | $2.1T |

## Technical Analysis

**TA Grade: B+**

[Note: Chart will be inserted separately]

Price remains above both moving averages.

## Investment Recommendation

**Buy** with a 12-month horizon.
`

func TestMarkdownToHTML(t *testing.T) {
	html, err := MarkdownToHTML(sampleReport)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<h1>NVIDIA Corporation (NVDA)</h1>",
		"<h2>Executive Summary</h2>",
		`<table class="data-table">`,
		"<td>45.2</td>",
		"<strong>TA Grade: B+</strong>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestHTMLReportDocument(t *testing.T) {
	a := testAssembler()
	html, err := a.HTMLReport(sampleReport, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"<title>NVIDIA Corporation (NVDA) - Stock Analysis Report</title>",
		"Report Generated: March 5, 2025",
		"report-container",
		"does not constitute investment advice",
		"--primary-color: #1a365d",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestHTMLReportChartPlaceholder(t *testing.T) {
	a := testAssembler()
	html, err := a.HTMLReport(sampleReport, "<svg>chart</svg>")
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(html, chartPlaceholder) {
		t.Error("placeholder should be replaced by the chart")
	}
	if !strings.Contains(html, `<div class="chart-container"><svg>chart</svg></div>`) {
		t.Error("chart not wrapped in chart-container")
	}
}

func TestHTMLReportChartFallbackInsertion(t *testing.T) {
	md := "## Technical Analysis\n\nNo placeholder here.\n"
	a := testAssembler()
	html, err := a.HTMLReport(md, "<svg>chart</svg>")
	if err != nil {
		t.Fatal(err)
	}

	idx := strings.Index(html, "Technical Analysis</h2>")
	chartIdx := strings.Index(html, `<div class="chart-container">`)
	if idx < 0 || chartIdx < 0 || chartIdx < idx {
		t.Errorf("chart should follow the Technical Analysis heading (heading=%d chart=%d)", idx, chartIdx)
	}
}

func TestPDFReport(t *testing.T) {
	a := testAssembler()
	pdf, err := a.PDFReport(sampleReport)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", pdf[:8])
	}
	if len(pdf) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(pdf))
	}
}

func TestExtractMetadata(t *testing.T) {
	meta := ExtractMetadata(sampleReport)

	if meta.TAGrade != "B+" {
		t.Errorf("TAGrade = %q", meta.TAGrade)
	}
	if meta.GradeClass != "grade-b" {
		t.Errorf("GradeClass = %q", meta.GradeClass)
	}
	if meta.Recommendation != "Buy" {
		t.Errorf("Recommendation = %q", meta.Recommendation)
	}
	if len(meta.Sections) != 4 || meta.Sections[0] != "Executive Summary" {
		t.Errorf("Sections = %v", meta.Sections)
	}
	if meta.WordCount == 0 {
		t.Error("WordCount should be non-zero")
	}
}

func TestExtractMetadataEmpty(t *testing.T) {
	meta := ExtractMetadata("Plain text with no structure.")
	if meta.TAGrade != "" || meta.Recommendation != "" || len(meta.Sections) != 0 {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
}

// Package fileproc extracts text from uploaded research material so it can
// be fed to the supplemental analysis prompt. PDFs, spreadsheets, HTML and
// plain text become text blocks; images pass through as bytes for vision
// analysis.
package fileproc

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Kind categorizes what a processed file yields.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

var supportedExtensions = map[string]string{
	"pdf":  "document",
	"png":  "image",
	"jpg":  "image",
	"jpeg": "image",
	"gif":  "image",
	"webp": "image",
	"csv":  "data",
	"xlsx": "data",
	"html": "web",
	"htm":  "web",
	"txt":  "text",
	"md":   "text",
}

var imageMIMETypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Result is the outcome of processing one upload.
type Result struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Content   string `json:"content,omitempty"`
	Image     []byte `json:"-"`
	MediaType string `json:"media_type,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Processor dispatches uploads to format-specific extractors.
type Processor struct {
	pdf *pdfExtractor
}

func NewProcessor() *Processor {
	return &Processor{pdf: newPDFExtractor()}
}

// FileType returns the category for a filename, or "" when unsupported.
func FileType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return supportedExtensions[ext]
}

// IsSupported reports whether the file extension is handled.
func IsSupported(filename string) bool {
	return FileType(filename) != ""
}

// SupportedExtensions lists handled extensions.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// Process extracts content from a single upload. Failures are reported in
// Result.Err rather than an error so one bad file never aborts a batch.
func (p *Processor) Process(ctx context.Context, data []byte, filename string) Result {
	result := Result{Name: filename}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	fileType := supportedExtensions[ext]
	if fileType == "" {
		result.Err = fmt.Sprintf("Unsupported file type: .%s", ext)
		return result
	}

	var err error
	switch fileType {
	case "document":
		result.Kind = KindText
		result.Content, err = p.pdf.extractText(ctx, data)
	case "image":
		result.Kind = KindImage
		result.Image = data
		result.MediaType = imageMIMETypes[ext]
		if result.MediaType == "" {
			result.MediaType = "image/png"
		}
	case "data":
		result.Kind = KindText
		if ext == "csv" {
			result.Content, err = extractCSV(data)
		} else {
			result.Content, err = extractExcel(data)
		}
	case "web":
		result.Kind = KindText
		result.Content, err = extractHTML(data)
	case "text":
		result.Kind = KindText
		result.Content = string(data)
	}

	if err != nil {
		log.Warn().Str("file", filename).Err(err).Msg("file extraction failed")
		result.Err = fmt.Sprintf("Error processing file: %v", err)
	}

	return result
}

// ProcessAll processes a batch of uploads in order.
func (p *Processor) ProcessAll(ctx context.Context, files map[string][]byte, order []string) []Result {
	results := make([]Result, 0, len(order))
	for _, name := range order {
		results = append(results, p.Process(ctx, files[name], name))
	}
	return results
}

// extractCSV summarizes a CSV: shape, headers, a preview of the first ten
// rows and min/mean/max for numeric columns.
func extractCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing CSV: %w", err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return "", fmt.Errorf("CSV file is empty")
	}

	header := records[0]
	rows := records[1:]

	lines := []string{
		"CSV Data Summary",
		fmt.Sprintf("Rows: %d", len(rows)),
		fmt.Sprintf("Columns: %d", len(header)),
		fmt.Sprintf("Column names: %s", strings.Join(header, ", ")),
		"",
		"First 10 rows:",
	}
	lines = append(lines, previewRows(header, rows, 10)...)

	if stats := numericStats(header, rows); len(stats) > 0 {
		lines = append(lines, "", "Numeric column statistics:")
		lines = append(lines, stats...)
	}

	return strings.Join(lines, "\n"), nil
}

// extractExcel summarizes every sheet of an xlsx workbook.
func extractExcel(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	lines := []string{
		"Excel File Summary",
		fmt.Sprintf("Number of sheets: %d", len(sheets)),
		fmt.Sprintf("Sheet names: %s", strings.Join(sheets, ", ")),
	}

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			lines = append(lines, "", fmt.Sprintf("=== Sheet: %s ===", sheet), fmt.Sprintf("[unreadable: %v]", err))
			continue
		}

		var header []string
		var body [][]string
		cols := 0
		if len(rows) > 0 {
			header = rows[0]
			body = rows[1:]
			cols = len(header)
		}

		lines = append(lines,
			"",
			fmt.Sprintf("=== Sheet: %s ===", sheet),
			fmt.Sprintf("Rows: %d", len(body)),
			fmt.Sprintf("Columns: %d", cols),
			fmt.Sprintf("Column names: %s", strings.Join(header, ", ")),
			"",
			"First 10 rows:",
		)
		lines = append(lines, previewRows(header, body, 10)...)
	}

	return strings.Join(lines, "\n"), nil
}

// extractHTML pulls readable text out of a saved web page, dropping
// scripts, styles and navigation chrome.
func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var sb strings.Builder
	if title != "" {
		sb.WriteString("Title: " + title + "\n\n")
	}

	doc.Find("h1, h2, h3, h4, p, li, td, th").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})

	out := strings.TrimSpace(sb.String())
	if out == "" {
		// Fallback to whole-body text for unstructured pages
		out = strings.TrimSpace(doc.Find("body").Text())
	}
	if out == "" {
		return "", fmt.Errorf("no readable text found in HTML")
	}
	return out, nil
}

func previewRows(header []string, rows [][]string, n int) []string {
	var out []string
	if len(header) > 0 {
		out = append(out, "  "+strings.Join(header, " | "))
	}
	for i, row := range rows {
		if i >= n {
			break
		}
		out = append(out, "  "+strings.Join(row, " | "))
	}
	return out
}

// numericStats computes count/mean/min/max per column that parses as numbers.
func numericStats(header []string, rows [][]string) []string {
	var out []string
	for col, name := range header {
		var vals []float64
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64); err == nil {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		minV, maxV, sum := vals[0], vals[0], 0.0
		for _, v := range vals {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			sum += v
		}
		out = append(out, fmt.Sprintf("  %s: count=%d mean=%.2f min=%.2f max=%.2f",
			name, len(vals), sum/float64(len(vals)), minV, maxV))
	}
	return out
}

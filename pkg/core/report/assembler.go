// Package report assembles the synthesized analysis into deliverable
// documents: a styled standalone HTML page with the price chart embedded,
// and a PDF rendering of the same content.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// chartPlaceholder is the marker the synthesis output carries where the
// candlestick chart belongs.
const chartPlaceholder = "[Note: Chart will be inserted separately]"

// Assembler turns report markdown into a complete HTML document.
type Assembler struct {
	Ticker  string
	Company string

	// now is swappable for deterministic output in tests.
	now func() time.Time
}

func NewAssembler(ticker, company string) *Assembler {
	return &Assembler{
		Ticker:  strings.ToUpper(ticker),
		Company: company,
		now:     time.Now,
	}
}

var markdownConverter = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(ghtml.WithUnsafe()),
)

// MarkdownToHTML converts report markdown to an HTML fragment. Tables get
// the data-table class the report stylesheet targets.
func MarkdownToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "<table>", `<table class="data-table">`), nil
}

// HTMLReport renders the full report document. chartHTML, when non-empty,
// replaces the chart placeholder; if the synthesis dropped the placeholder
// the chart is inserted right after the Technical Analysis heading instead.
func (a *Assembler) HTMLReport(reportMarkdown, chartHTML string) (string, error) {
	content, err := MarkdownToHTML(reportMarkdown)
	if err != nil {
		return "", err
	}

	if chartHTML != "" {
		content = insertChart(content, chartHTML)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s (%s) - Stock Analysis Report</title>\n", a.Company, a.Ticker)
	sb.WriteString(reportStyles)
	sb.WriteString("</head>\n<body>\n    <div class=\"report-container\">\n")
	sb.WriteString("        <header class=\"report-header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s (%s)</h1>\n", a.Company, a.Ticker)
	fmt.Fprintf(&sb, "            <p class=\"report-date\">Report Generated: %s</p>\n", a.now().Format("January 2, 2006"))
	sb.WriteString("        </header>\n\n")
	sb.WriteString("        <main class=\"report-content\">\n")
	sb.WriteString(content)
	sb.WriteString("\n        </main>\n\n")
	sb.WriteString("        <footer class=\"report-footer\">\n")
	sb.WriteString("            <p>Generated by Stock Analysis Report Generator</p>\n")
	sb.WriteString("            <p class=\"disclaimer\">This report is for informational purposes only and does not constitute investment advice.</p>\n")
	sb.WriteString("        </footer>\n    </div>\n</body>\n</html>")
	return sb.String(), nil
}

// insertChart wires the chart into the rendered content. Preferred anchor
// is the placeholder text; fallback is the end of the Technical Analysis
// heading tag.
func insertChart(content, chartHTML string) string {
	wrapped := fmt.Sprintf(`<div class="chart-container">%s</div>`, chartHTML)

	if strings.Contains(content, chartPlaceholder) {
		return strings.Replace(content, chartPlaceholder, wrapped, 1)
	}

	if idx := strings.Index(content, "Technical Analysis"); idx >= 0 {
		if end := strings.Index(content[idx:], "</h2>"); end >= 0 {
			pos := idx + end + len("</h2>")
			return content[:pos] + "\n" + wrapped + "\n" + content[pos:]
		}
	}
	return content
}

const reportStyles = `    <style>
        :root {
            --primary-color: #1a365d;
            --secondary-color: #2c5282;
            --accent-color: #3182ce;
            --success-color: #38a169;
            --warning-color: #d69e2e;
            --danger-color: #e53e3e;
            --text-color: #2d3748;
            --light-bg: #f7fafc;
            --border-color: #e2e8f0;
        }

        * {
            box-sizing: border-box;
            margin: 0;
            padding: 0;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            font-size: 14px;
            line-height: 1.6;
            color: var(--text-color);
            background-color: #fff;
        }

        .report-container {
            max-width: 900px;
            margin: 0 auto;
            padding: 40px;
        }

        .report-header {
            text-align: center;
            padding-bottom: 30px;
            border-bottom: 3px solid var(--primary-color);
            margin-bottom: 30px;
        }

        .report-header h1 {
            font-size: 28px;
            color: var(--primary-color);
            margin-bottom: 10px;
        }

        .report-date {
            color: #718096;
            font-size: 14px;
        }

        h1 { font-size: 24px; color: var(--primary-color); margin: 30px 0 15px 0; }
        h2 { font-size: 20px; color: var(--secondary-color); margin: 25px 0 15px 0; border-bottom: 2px solid var(--border-color); padding-bottom: 8px; }
        h3 { font-size: 16px; color: var(--text-color); margin: 20px 0 10px 0; }

        p {
            margin-bottom: 12px;
        }

        strong {
            color: var(--primary-color);
        }

        ul {
            margin: 15px 0;
            padding-left: 25px;
        }

        li {
            margin-bottom: 8px;
        }

        .data-table {
            width: 100%;
            border-collapse: collapse;
            margin: 20px 0;
            font-size: 13px;
        }

        .data-table th,
        .data-table td {
            padding: 10px 12px;
            text-align: left;
            border: 1px solid var(--border-color);
        }

        .data-table th {
            background-color: var(--light-bg);
            font-weight: 600;
            color: var(--primary-color);
        }

        .data-table tr:nth-child(even) {
            background-color: #fafafa;
        }

        .chart-container {
            margin: 25px 0;
            padding: 15px;
            background-color: var(--light-bg);
            border-radius: 8px;
            border: 1px solid var(--border-color);
        }

        hr {
            border: none;
            border-top: 1px solid var(--border-color);
            margin: 30px 0;
        }

        .report-footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid var(--border-color);
            text-align: center;
            color: #718096;
            font-size: 12px;
        }

        .disclaimer {
            font-style: italic;
            margin-top: 10px;
        }

        .grade-a { color: var(--success-color); font-weight: bold; }
        .grade-b { color: #48bb78; font-weight: bold; }
        .grade-c { color: var(--warning-color); font-weight: bold; }
        .grade-d { color: #ed8936; font-weight: bold; }
        .grade-f { color: var(--danger-color); font-weight: bold; }

        @media print {
            body {
                font-size: 11px;
            }

            .report-container {
                max-width: 100%;
                padding: 20px;
            }

            .chart-container {
                page-break-inside: avoid;
            }

            h2 {
                page-break-after: avoid;
            }
        }
    </style>
`

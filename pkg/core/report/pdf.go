package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// PDFReport renders the report markdown straight to PDF bytes. The layout
// is deliberately plainer than the HTML report; the chart is not embedded
// because ECharts output needs a browser to draw.
func (a *Assembler) PDFReport(reportMarkdown string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(fmt.Sprintf("%s (%s) - Stock Analysis Report", a.Company, a.Ticker), true)
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")

	// Cover header matching the HTML report header
	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(26, 54, 93)
	doc.MultiCell(0, 9, tr(fmt.Sprintf("%s (%s)", a.Company, a.Ticker)), "", "C", false)
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(113, 128, 150)
	doc.MultiCell(0, 6, "Report Generated: "+a.now().Format("January 2, 2006"), "", "C", false)
	doc.Ln(4)
	doc.SetDrawColor(26, 54, 93)
	doc.SetLineWidth(0.8)
	doc.Line(15, doc.GetY(), 195, doc.GetY())
	doc.SetLineWidth(0.2)
	doc.Ln(6)
	doc.SetTextColor(45, 55, 72)

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	source := []byte(reportMarkdown)
	root := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{doc: doc, source: source, tr: tr}
	if err := ast.Walk(root, w.walk); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter walks the markdown AST and emits fpdf drawing calls.
type pdfWriter struct {
	doc    *fpdf.Fpdf
	source []byte
	tr     func(string) string

	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) bodyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont("Helvetica", style, 10)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.doc.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.doc.Write(5, w.tr(string(node.Text(w.source))))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.bodyFont()
	case *ast.CodeSpan:
		if entering {
			w.doc.SetFont("Courier", "", 9)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					w.doc.Write(5, w.tr(string(t.Segment.Value(w.source))))
				}
			}
			w.bodyFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.doc.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.doc.Ln(5)
			w.doc.SetX(15 + float64(w.listDepth)*5)
			w.doc.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.doc.Ln(3)
			w.doc.SetDrawColor(226, 232, 240)
			w.doc.Line(15, w.doc.GetY(), 195, w.doc.GetY())
			w.doc.Ln(3)
		}
	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.doc.Ln(6)
		size := 11.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 13
		case 3:
			size = 11.5
		}
		w.doc.SetTextColor(26, 54, 93)
		w.doc.SetFont("Helvetica", "B", size)
		return
	}
	w.doc.Ln(6)
	w.doc.SetTextColor(45, 55, 72)
	w.bodyFont()
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.doc.Ln(2)
	w.doc.SetFont("Courier", "", 8.5)
	w.doc.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.doc.MultiCell(0, 4.5, w.tr(string(seg.Value(w.source))), "", "L", true)
	}
	w.doc.SetFillColor(255, 255, 255)
	w.bodyFont()
	w.doc.Ln(2)
}

// table lays out markdown tables with evenly split columns. Cell text is
// wrapped by SplitText; row height grows with the tallest cell.
func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader:
				collect(child)
			case *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, string(cell.Text(w.source)))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(n)

	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const tableWidth, lineHeight = 180.0, 4.5
	colWidth := tableWidth / float64(len(rows[0]))

	w.doc.Ln(4)
	for i, row := range rows {
		if i == 0 {
			w.doc.SetFont("Helvetica", "B", 8.5)
			w.doc.SetFillColor(247, 250, 252)
		} else {
			w.doc.SetFont("Helvetica", "", 8.5)
			w.doc.SetFillColor(255, 255, 255)
		}

		wrapped := make([][]string, len(row))
		maxLines := 1
		for j, cell := range row {
			wrapped[j] = w.doc.SplitText(w.tr(cell), colWidth-2)
			if len(wrapped[j]) > maxLines {
				maxLines = len(wrapped[j])
			}
		}
		rowHeight := float64(maxLines)*lineHeight + 2

		if w.doc.GetY()+rowHeight > 282 {
			w.doc.AddPage()
		}

		startX, startY := 15.0, w.doc.GetY()
		for j := range row {
			x := startX + float64(j)*colWidth
			w.doc.Rect(x, startY, colWidth, rowHeight, "FD")
			w.doc.SetXY(x+1, startY+1)
			for _, line := range wrapped[j] {
				w.doc.CellFormat(colWidth-2, lineHeight, line, "", 2, "L", false, 0, "")
			}
		}
		w.doc.SetXY(startX, startY+rowHeight)
	}
	w.doc.Ln(4)
	w.bodyFont()
}

package fileproc

import (
	"context"
	"strings"
	"testing"
)

func TestFileType(t *testing.T) {
	cases := map[string]string{
		"report.pdf":     "document",
		"chart.PNG":      "image",
		"data.csv":       "data",
		"model.xlsx":     "data",
		"article.html":   "web",
		"notes.md":       "text",
		"readme.txt":     "text",
		"archive.zip":    "",
		"noextension":    "",
		"shot.jpeg":      "image",
		"page.htm":       "web",
		"weird.name.csv": "data",
	}
	for name, want := range cases {
		if got := FileType(name); got != want {
			t.Errorf("FileType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestProcessUnsupported(t *testing.T) {
	p := NewProcessor()
	res := p.Process(context.Background(), []byte("x"), "malware.exe")
	if res.Err == "" || !strings.Contains(res.Err, ".exe") {
		t.Errorf("expected unsupported-type error, got %+v", res)
	}
}

func TestProcessText(t *testing.T) {
	p := NewProcessor()
	res := p.Process(context.Background(), []byte("# Thesis\nShort NVDA."), "notes.md")
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Kind != KindText || res.Content != "# Thesis\nShort NVDA." {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProcessImagePassthrough(t *testing.T) {
	p := NewProcessor()
	img := []byte{0x89, 0x50, 0x4e, 0x47}
	res := p.Process(context.Background(), img, "chart.png")
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Kind != KindImage {
		t.Errorf("kind = %q", res.Kind)
	}
	if res.MediaType != "image/png" {
		t.Errorf("media type = %q", res.MediaType)
	}
	if len(res.Image) != len(img) {
		t.Error("image bytes should pass through untouched")
	}
}

func TestExtractCSV(t *testing.T) {
	csvData := "ticker,price,volume\nAAPL,229.87,50000000\nMSFT,421.10,22000000\nTSLA,248.50,90000000\n"
	out, err := extractCSV([]byte(csvData))
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"Rows: 3",
		"Columns: 3",
		"Column names: ticker, price, volume",
		"First 10 rows:",
		"AAPL | 229.87 | 50000000",
		"Numeric column statistics:",
		"price: count=3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("CSV summary missing %q\n%s", want, out)
		}
	}
}

func TestExtractCSVEmpty(t *testing.T) {
	if _, err := extractCSV([]byte("")); err == nil {
		t.Fatal("expected error for empty CSV")
	}
}

func TestExtractHTML(t *testing.T) {
	html := `<html><head><title>Q3 Earnings Recap</title>
	<script>alert("x")</script><style>p{}</style></head>
	<body><nav>Home</nav><h1>Revenue beats estimates</h1>
	<p>Revenue rose 12% year over year.</p></body></html>`

	out, err := extractHTML([]byte(html))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "Title: Q3 Earnings Recap") {
		t.Error("missing page title")
	}
	if !strings.Contains(out, "Revenue beats estimates") || !strings.Contains(out, "rose 12%") {
		t.Error("missing body text")
	}
	if strings.Contains(out, "alert") {
		t.Error("script content should be stripped")
	}
	if strings.Contains(out, "Home") {
		t.Error("nav chrome should be stripped")
	}
}

func TestProcessAllKeepsOrder(t *testing.T) {
	p := NewProcessor()
	files := map[string][]byte{
		"b.txt": []byte("second"),
		"a.txt": []byte("first"),
	}
	results := p.ProcessAll(context.Background(), files, []string{"a.txt", "b.txt"})
	if len(results) != 2 || results[0].Name != "a.txt" || results[1].Name != "b.txt" {
		t.Errorf("order not preserved: %+v", results)
	}
}

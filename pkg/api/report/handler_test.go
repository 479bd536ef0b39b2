package report

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseGenerateRequestJSON(t *testing.T) {
	body := strings.NewReader(`{"ticker": "NVDA", "range": "6mo"}`)
	r := httptest.NewRequest("POST", "/api/report/generate", body)
	r.Header.Set("Content-Type", "application/json")

	req, files, _, err := parseGenerateRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Ticker != "NVDA" || req.Range != "6mo" {
		t.Errorf("req = %+v", req)
	}
	if len(files) != 0 {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestParseGenerateRequestMissingTicker(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/report/generate", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")

	if _, _, _, err := parseGenerateRequest(r); err == nil {
		t.Fatal("expected error for missing ticker and company")
	}
}

func TestParseGenerateRequestMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("ticker", "AAPL")
	fw, _ := mw.CreateFormFile("files", "notes.txt")
	fw.Write([]byte("thesis notes"))
	fw, _ = mw.CreateFormFile("files", "chart.png")
	fw.Write([]byte{0x89, 0x50})
	mw.Close()

	r := httptest.NewRequest("POST", "/api/report/generate", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	req, files, order, err := parseGenerateRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Ticker != "AAPL" {
		t.Errorf("ticker = %q", req.Ticker)
	}
	if string(files["notes.txt"]) != "thesis notes" {
		t.Errorf("file content = %q", files["notes.txt"])
	}
	if len(order) != 2 || order[0] != "notes.txt" || order[1] != "chart.png" {
		t.Errorf("order = %v", order)
	}
}

func TestHandleSupportedTypes(t *testing.T) {
	w := httptest.NewRecorder()
	HandleSupportedTypes(w, httptest.NewRequest("GET", "/api/report/supported-types", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Extensions []string `json:"extensions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ext := range resp.Extensions {
		if ext == "pdf" {
			found = true
		}
	}
	if !found {
		t.Errorf("pdf missing from extensions: %v", resp.Extensions)
	}
}

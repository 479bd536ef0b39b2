package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/analyst"
	"equity_research/pkg/core/fileproc"
	"equity_research/pkg/core/marketdata"
	"equity_research/pkg/core/pipeline"
	"equity_research/pkg/core/prompt"
	"equity_research/pkg/core/report"
	"equity_research/pkg/core/store"
)

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var (
		ticker   = flag.String("ticker", "", "stock ticker symbol (e.g. NVDA)")
		company  = flag.String("company", "", "company name, used to resolve the ticker when -ticker is omitted")
		rng      = flag.String("range", "1y", "price history range (3mo, 6mo, 1y, 2y, 5y)")
		provider = flag.String("provider", "", "override the active LLM provider")
		outDir   = flag.String("out", "reports", "output directory")
		formats  = flag.String("format", "html", "comma-separated output formats: html, pdf, md")
		files    fileList
	)
	flag.Var(&files, "f", "supplemental file to include (repeatable)")
	flag.Parse()

	if *ticker == "" && *company == "" {
		fmt.Fprintln(os.Stderr, "Usage: report -ticker NVDA [-company \"NVIDIA Corporation\"] [-f thesis.pdf] [-format html,pdf]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	godotenv.Load()

	if err := prompt.LoadFromDirectory("resources"); err == nil {
		fmt.Printf("[PROMPT] %d prompts registered\n", prompt.Get().Count())
	}

	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr := agent.NewManager(agentCfg)

	if *provider != "" && agentMgr.GetProviderByName(*provider) == nil {
		fmt.Fprintf(os.Stderr, "Error: provider %s not found\n", *provider)
		os.Exit(1)
	}

	var repo *store.ReportRepo
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database unavailable: %v\n", err)
		} else {
			repo = store.NewReportRepo()
			defer store.Close()
		}
	}

	uploads := make(map[string][]byte)
	var order []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		name := filepath.Base(path)
		if !fileproc.IsSupported(name) {
			fmt.Fprintf(os.Stderr, "Unsupported file type: %s\n", name)
			os.Exit(1)
		}
		uploads[name] = data
		order = append(order, name)
	}

	orch := pipeline.New(
		marketdata.NewClient(),
		fileproc.NewProcessor(),
		analyst.NewEngine(agentMgr).WithPacing(analyst.DefaultPacing()),
		repo,
	)

	start := time.Now()
	result, err := orch.GenerateReport(context.Background(), pipeline.Request{
		Ticker:    *ticker,
		Company:   *company,
		Range:     *rng,
		Provider:  *provider,
		Files:     uploads,
		FileOrder: order,
		Progress: func(step, status, detail string) {
			fmt.Printf("[%s] %s: %s\n", strings.ToUpper(status), step, detail)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report generation failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := filepath.Join(*outDir, fmt.Sprintf("%s_report_%s", result.Ticker, time.Now().Format("2006-01-02")))
	for _, format := range strings.Split(*formats, ",") {
		switch strings.TrimSpace(strings.ToLower(format)) {
		case "md", "markdown":
			writeOut(base+".md", []byte(result.Markdown))
		case "html":
			writeOut(base+".html", []byte(result.HTML))
		case "pdf":
			pdf, err := report.NewAssembler(result.Ticker, result.Company).PDFReport(result.Markdown)
			if err != nil {
				fmt.Fprintf(os.Stderr, "PDF export failed: %v\n", err)
				continue
			}
			writeOut(base+".pdf", pdf)
		default:
			fmt.Fprintf(os.Stderr, "Unknown format: %s\n", format)
		}
	}

	if result.Metadata.TAGrade != "" {
		fmt.Printf("TA Grade: %s\n", result.Metadata.TAGrade)
	}
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Second))
}

func writeOut(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		return
	}
	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
}

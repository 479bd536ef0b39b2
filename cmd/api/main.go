package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	apiconfig "equity_research/pkg/api/config"
	apireport "equity_research/pkg/api/report"
	"equity_research/pkg/core/agent"
	"equity_research/pkg/core/analyst"
	"equity_research/pkg/core/fileproc"
	"equity_research/pkg/core/marketdata"
	"equity_research/pkg/core/pipeline"
	"equity_research/pkg/core/prompt"
	"equity_research/pkg/core/store"
)

var agentMgr *agent.Manager

func main() {
	// Load environment variables
	godotenv.Load()

	// Prompt overrides live next to the binary or the working directory
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		fmt.Printf("[WARNING] Failed to load prompt overrides: %v\n", err)
		fmt.Println("  Falling back to built-in prompts")
	} else {
		fmt.Printf("[PROMPT] %d prompts registered (overrides from %s)\n", prompt.Get().Count(), resourcesPath)
	}

	// Initialize manager from config
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr = agent.NewManager(agentCfg)

	// Persistence is optional; without DATABASE_URL reports are not stored
	var repo *store.ReportRepo
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database unavailable: %v\n", err)
		} else {
			repo = store.NewReportRepo()
			defer store.Close()
			fmt.Println("[STORE] Report persistence enabled")
		}
	}

	orch := pipeline.New(
		marketdata.NewClient(),
		fileproc.NewProcessor(),
		analyst.NewEngine(agentMgr).WithPacing(analyst.DefaultPacing()),
		repo,
	)
	apireport.InitHandler(orch, repo, agentMgr)

	// Config endpoints
	configHandler := apiconfig.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	// Report endpoints
	http.HandleFunc("/api/report/generate", apireport.HandleGenerate)
	http.HandleFunc("/api/report/generate-stream", apireport.HandleGenerateStream)
	http.HandleFunc("/api/report/download", apireport.HandleDownload)
	http.HandleFunc("/api/report/history", apireport.HandleHistory)
	http.HandleFunc("/api/report/supported-types", apireport.HandleSupportedTypes)

	fmt.Println("API server starting on :8080...")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - POST /api/report/generate  (multipart with supplemental files)")
	fmt.Println("  - GET  /api/report/generate-stream  (SSE streaming)")
	fmt.Println("  - GET  /api/report/download?id=<uuid>&format=html|pdf|md")
	fmt.Println("  - GET  /api/report/history")
	fmt.Println("  - GET  /api/report/supported-types")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

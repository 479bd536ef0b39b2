package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"equity_research/pkg/core/utils"
)

// LoadFromDirectory loads prompt overrides from a directory tree.
// Expected structure:
//
//	baseDir/
//	  research/
//	    overview.json
//	    technical.json
//	  synthesis/
//	    report.json
//
// Each JSON file holds a single PromptTemplate. Files whose ID matches a
// built-in replace it; unknown IDs are added.
func LoadFromDirectory(baseDir string) error {
	registry := Get()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		return fmt.Errorf("prompt directory not found: %s", baseDir)
	}

	loaded := 0
	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// SmartParse tolerates comments and trailing commas in
		// hand-edited override files.
		var pt PromptTemplate
		if _, err := utils.SmartParse(string(data), &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, baseDir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(path, baseDir)
		}

		if err := registry.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		loaded++

		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("[prompt.Loader] Loaded %d prompt overrides from %s\n", loaded, baseDir)
	return nil
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "research/overview.json" -> "research.overview"
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, ".json")
	relPath = strings.ReplaceAll(relPath, string(filepath.Separator), ".")
	return relPath
}

// detectCategory extracts the category from the folder structure
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

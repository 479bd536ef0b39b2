package report

import (
	"regexp"
	"strings"
)

// Metadata is the structured summary pulled out of a finished report,
// surfaced in API responses and stored alongside the report body.
type Metadata struct {
	TAGrade        string   `json:"ta_grade,omitempty"`
	GradeClass     string   `json:"grade_class,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Sections       []string `json:"sections,omitempty"`
	WordCount      int      `json:"word_count"`
}

var (
	taGradeRe = regexp.MustCompile(`\*\*TA Grade:\s*([A-F][+-]?)\*\*`)
	// The synthesis skeleton closes the summary section with the overall
	// call in bold, e.g. **Buy**.
	recommendationRe = regexp.MustCompile(`(?i)\*\*(Strong Buy|Buy|Hold|Sell|Strong Sell)\*\*`)
	sectionRe        = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

// ExtractMetadata scans report markdown for the grade, recommendation and
// section outline. Fields the model omitted stay empty.
func ExtractMetadata(reportMarkdown string) Metadata {
	meta := Metadata{WordCount: len(strings.Fields(reportMarkdown))}

	if m := taGradeRe.FindStringSubmatch(reportMarkdown); m != nil {
		meta.TAGrade = m[1]
		meta.GradeClass = gradeClass(m[1])
	}
	if m := recommendationRe.FindStringSubmatch(reportMarkdown); m != nil {
		meta.Recommendation = m[1]
	}
	for _, m := range sectionRe.FindAllStringSubmatch(reportMarkdown, -1) {
		meta.Sections = append(meta.Sections, strings.TrimSpace(m[1]))
	}
	return meta
}

// gradeClass maps a letter grade to its stylesheet class. Modifiers like
// B+ share the base letter's class.
func gradeClass(grade string) string {
	if grade == "" {
		return ""
	}
	switch strings.ToUpper(grade[:1]) {
	case "A":
		return "grade-a"
	case "B":
		return "grade-b"
	case "C":
		return "grade-c"
	case "D":
		return "grade-d"
	case "F":
		return "grade-f"
	}
	return ""
}

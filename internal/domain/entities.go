package domain

import (
	"path"
	"strings"
	"unicode/utf8"
)

// CodeUnit is one source file handed to the analysis pipeline.
// It is immutable once constructed.
type CodeUnit struct {
	Path     string `json:"path" yaml:"path"`
	Content  string `json:"-" yaml:"-"`
	Size     int    `json:"size" yaml:"size"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// NewCodeUnit derives size and language from the path and content.
func NewCodeUnit(p, content string) CodeUnit {
	lang, _ := LanguageFor(p)
	return CodeUnit{
		Path:     p,
		Content:  content,
		Size:     len(content),
		Language: lang,
	}
}

// Length returns the content length in characters.
func (u CodeUnit) Length() int {
	return utf8.RuneCountInString(u.Content)
}

// Ext returns the lower-cased extension of the unit's path, including the dot.
func (u CodeUnit) Ext() string {
	return Ext(u.Path)
}

type AnalysisResult struct {
	FilePath               string   `json:"file_path" yaml:"file_path"`
	Language               string   `json:"language" yaml:"language"`
	Summary                string   `json:"summary" yaml:"summary"`
	MainFunctionality      string   `json:"main_functionality" yaml:"main_functionality"`
	KeyComponents          []string `json:"key_components" yaml:"key_components"`
	Dependencies           []string `json:"dependencies" yaml:"dependencies"`
	ComplexityAssessment   string   `json:"complexity_assessment" yaml:"complexity_assessment"`
	ImprovementSuggestions []string `json:"improvement_suggestions" yaml:"improvement_suggestions"`
	CodePatterns           []string `json:"code_patterns" yaml:"code_patterns"`
}

// FailedAnalysis is the placeholder recorded when a unit's model call fails.
func FailedAnalysis(filePath string) AnalysisResult {
	lang, ok := LanguageFor(filePath)
	if !ok {
		lang = UnknownLanguage
	}
	return AnalysisResult{
		FilePath:               filePath,
		Language:               lang,
		Summary:                "Analysis failed due to an error",
		MainFunctionality:      "Could not determine",
		KeyComponents:          []string{},
		Dependencies:           []string{},
		ComplexityAssessment:   "Unknown",
		ImprovementSuggestions: []string{},
		CodePatterns:           []string{},
	}
}

type InsightSummary struct {
	TotalFilesAnalyzed     int            `json:"total_files_analyzed" yaml:"total_files_analyzed"`
	ComplexityDistribution map[string]int `json:"complexity_distribution" yaml:"complexity_distribution"`
	CommonPatterns         []string       `json:"common_patterns" yaml:"common_patterns"`
	KeyTechnologies        []string       `json:"key_technologies" yaml:"key_technologies"`
	ImprovementThemes      []string       `json:"improvement_themes" yaml:"improvement_themes"`
}

// EmptySummary is the summary of zero results.
func EmptySummary() InsightSummary {
	return InsightSummary{
		ComplexityDistribution: map[string]int{},
		CommonPatterns:         []string{},
		KeyTechnologies:        []string{},
		ImprovementThemes:      []string{},
	}
}

// DebtCandidate is a deduplicated improvement item suitable for an issue tracker.
type DebtCandidate struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// Entry is one item of a backend directory listing.
type Entry struct {
	Path        string `json:"path" yaml:"path"`
	IsDirectory bool   `json:"is_directory" yaml:"is_directory"`
	Size        int64  `json:"size" yaml:"size"`
}

// Ext returns the lower-cased extension of p, including the dot.
func Ext(p string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
}

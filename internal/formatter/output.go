package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"repolens/internal/adapter/selector"
	"repolens/internal/usecase"
)

// Display writes the report in the requested format: human, json or yaml.
func Display(w io.Writer, report *usecase.Report, format string) error {
	switch format {
	case "json":
		return displayJSON(w, report)
	case "yaml":
		return displayYAML(w, report)
	case "human", "":
		displayHuman(w, report)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func displayJSON(w io.Writer, report *usecase.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func displayYAML(w io.Writer, report *usecase.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func displayHuman(w io.Writer, report *usecase.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "REPOSITORY: %s\n", report.Target)
	fmt.Fprintf(w, "   Files collected: %d, analyzed: %d", report.Collected, len(report.Results))
	if report.Model != "" {
		fmt.Fprintf(w, " (model %s)", report.Model)
	}
	fmt.Fprintf(w, "\n\n")

	if !report.Enabled {
		yellow.Fprintln(w, "MODEL ANALYSIS DISABLED")
		fmt.Fprintln(w, "   No model credentials are configured. Set the API key variable for your provider.")
		fmt.Fprintln(w)
		return
	}

	s := report.Summary
	if len(s.ComplexityDistribution) > 0 {
		white.Fprintln(w, "COMPLEXITY:")
		for _, k := range sortedByCount(s.ComplexityDistribution) {
			fmt.Fprintf(w, "   %-14s %d\n", k, s.ComplexityDistribution[k])
		}
		fmt.Fprintln(w)
	}
	printList(w, white, "KEY TECHNOLOGIES:", s.KeyTechnologies)
	printList(w, white, "COMMON PATTERNS:", s.CommonPatterns)
	printList(w, yellow, "IMPROVEMENT THEMES:", s.ImprovementThemes)

	if len(report.Selected) > 0 {
		green.Fprintln(w, "FILES:")
		for i, sel := range report.Selected {
			r, ok := report.Results[sel.Unit.Path]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "   %d. %s %s\n", i+1, color.CyanString(sel.Unit.Path), color.HiBlackString("[%s, score %d]", r.Language, sel.Score))
			fmt.Fprintln(w, wrapText(r.Summary, 80, "      "))
			if r.ComplexityAssessment != "" {
				fmt.Fprintf(w, "      Complexity: %s\n", r.ComplexityAssessment)
			}
			fmt.Fprintln(w)
		}
	}

	if len(report.Issues) > 0 {
		green.Fprintln(w, "CREATED ISSUES:")
		for _, u := range report.Issues {
			fmt.Fprintf(w, "   %s\n", u)
		}
		fmt.Fprintln(w)
	} else if len(report.Candidates) > 0 {
		yellow.Fprintf(w, "TECHNICAL DEBT CANDIDATES: %d\n", len(report.Candidates))
		for i, c := range report.Candidates {
			if i == 5 {
				fmt.Fprintf(w, "   ... and %d more\n", len(report.Candidates)-5)
				break
			}
			fmt.Fprintf(w, "   - %s\n", c.Title)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Completed in %s. Run with -o json or -o yaml for machine-readable output", report.Duration.Round(1e6)))
}

func printList(w io.Writer, c *color.Color, title string, items []string) {
	if len(items) == 0 {
		return
	}
	c.Fprintln(w, title)
	for _, item := range items {
		fmt.Fprintf(w, "   - %s\n", item)
	}
	fmt.Fprintln(w)
}

func sortedByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// DisplaySelection prints a ranked selection without analysis results.
func DisplaySelection(w io.Writer, sel []selector.Selection) {
	for i, s := range sel {
		marker := ""
		if s.Focused {
			marker = color.YellowString(" (focus)")
		}
		fmt.Fprintf(w, "%3d. %5d  %s%s\n", i+1, s.Score, s.Unit.Path, marker)
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		current := indent
		for _, word := range words {
			switch {
			case len(current)+len(word)+1 > width && current != indent:
				result.WriteString(current + "\n")
				current = indent + word
			case current == indent:
				current += word
			default:
				current += " " + word
			}
		}
		if current != indent {
			result.WriteString(current + "\n")
		}
	}
	return strings.TrimSuffix(result.String(), "\n")
}

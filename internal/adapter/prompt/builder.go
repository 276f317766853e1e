package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"repolens/internal/domain"
)

// SystemPrompt is sent ahead of every analysis prompt.
const SystemPrompt = "You are an expert software engineer who provides clear, detailed code analysis and explanations. Always respond with valid JSON format."

//go:embed templates/*.txt
var templates embed.FS

// Builder renders the per-file analysis prompt.
type Builder struct {
	tmpl   *template.Template
	system string
}

type data struct {
	Path     string
	Language string
	Content  string
}

func NewBuilder() (*Builder, error) {
	content, err := templates.ReadFile("templates/analysis.txt")
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New("analysis").Funcs(template.FuncMap{
		"lower": strings.ToLower,
	}).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{tmpl: tmpl, system: SystemPrompt}, nil
}

func (b *Builder) System() string { return b.system }

// Build renders the prompt for u. Units without a known language are
// labelled with the unknown-language marker.
func (b *Builder) Build(u domain.CodeUnit) (string, error) {
	lang := u.Language
	if lang == "" {
		lang = domain.UnknownLanguage
	}
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data{Path: u.Path, Language: lang, Content: u.Content}); err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", u.Path, err)
	}
	return buf.String(), nil
}

// Version identifies the template text, so cached replies can be
// invalidated when it changes.
func (b *Builder) Version() string {
	content, _ := templates.ReadFile("templates/analysis.txt")
	return fmt.Sprintf("%x", len(content)) + ":" + shortHash(string(content)+b.system)
}

package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"repolens/internal/port"
)

var _ port.LLM = (*Mock)(nil)

// Mock answers every prompt without a network call. By default it returns
// a well-formed analysis; Respond overrides the reply.
type Mock struct {
	Respond func(system, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) ModelName() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *Mock) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(system, prompt)
	}
	return cannedAnalysis(prompt), nil
}

// Prompts returns the prompts received so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func cannedAnalysis(prompt string) string {
	name := "the file"
	if i := strings.Index(prompt, "`"); i >= 0 {
		if j := strings.Index(prompt[i+1:], "`"); j >= 0 {
			name = prompt[i+1 : i+1+j]
		}
	}
	data, _ := json.Marshal(map[string]any{
		"summary":                 "Mock analysis of " + name + ".",
		"main_functionality":      "Placeholder description produced without a model call.",
		"key_components":          []string{name},
		"dependencies":            []string{},
		"complexity_assessment":   "Simple - generated offline",
		"improvement_suggestions": []string{"Add tests covering " + name},
		"code_patterns":           []string{},
	})
	return string(data)
}

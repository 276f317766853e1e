package port

import "context"

// LLM represents a hosted language model used to explain source files.
type LLM interface {
	// Complete returns the model's reply to a single user prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a system prompt ahead of the user prompt.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

package ai

import "context"

// Generator sends a single prompt to a generative text service and returns the reply text.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

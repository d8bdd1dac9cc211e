package ai

import (
	"context"
)

// TextGenerator produces free text for a prompt. It lets the narrator run
// against Gemini in production and a stub in tests.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Package genner abstracts the completion backend that writes strategies
// and candidate programs. Callers depend only on the Genner interface and
// receive the backend by injection.
package genner

import (
	"context"
	"fmt"

	"reclaim/internal/transcript"
)

// Genner produces model completions over a chat transcript.
//
// GenerateCode returns the extracted program and the raw completion text.
// GenerateList returns extracted list items and the raw completion text.
// Both return *GenerationError when the model replied but nothing usable
// could be extracted; transport failures come back unwrapped.
type Genner interface {
	GenerateCode(ctx context.Context, msgs []transcript.Message) (code, raw string, err error)
	GenerateList(ctx context.Context, msgs []transcript.Message) (items []string, raw string, err error)
}

// GenerationError reports an unusable completion: empty output or output no
// extraction strategy could parse. It is retryable — the orchestrator burns
// an attempt and asks again.
type GenerationError struct {
	Op  string
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

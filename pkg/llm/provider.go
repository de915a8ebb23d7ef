// Package llm provides abstractions for the planning-service integration.
//
// Providers handle API communication with an OpenAI-compatible text-completion
// endpoint and stay focused on transport concerns. The agent layer owns
// everything else: parsing planned actions out of the text, conversation
// state, and the session loop.
package llm

import (
	"context"

	"github.com/entrhq/surf/pkg/types"
)

// Provider defines the interface to the planning service.
type Provider interface {
	// Complete sends messages to the planning service and returns the full
	// response message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModel returns the model name being used.
	GetModel() string
}

// StreamChunk is one increment of a streamed completion.
type StreamChunk struct {
	// Role is set on the first chunk of a response (e.g. "assistant").
	Role string

	// Content is this chunk's text delta.
	Content string

	// Finished marks the final chunk of a completed stream.
	Finished bool

	// Error is set when the stream failed mid-flight.
	Error error
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

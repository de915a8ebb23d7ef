// Package tokenizer provides tiktoken-backed token counting for prompt
// budgeting. Tool results fed back into the planning prompt are truncated to
// a token budget before inclusion.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/surf/pkg/types"
)

// fallbackEncoding covers models tiktoken has no mapping for.
const fallbackEncoding = "cl100k_base"

// Tokenizer counts and trims text by token count for a specific model.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer for the given model, falling back to the cl100k
// base encoding when the model is unknown.
func New(model string) (*Tokenizer, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer encoding: %w", err)
		}
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the token count of the text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the total token count across messages.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content)
	}
	return total
}

// Truncate trims the text to at most maxTokens tokens, marking the cut.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	truncated := t.encoding.Decode(tokens[:maxTokens])
	return truncated + fmt.Sprintf("\n[truncated: %d of %d tokens shown]", maxTokens, len(tokens))
}

package types

// MessageRole identifies the author of a message in a planning conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem marks instructions that frame the whole conversation.
	RoleUser      MessageRole = "user"      // RoleUser marks task input and observed tool results fed back to the planner.
	RoleAssistant MessageRole = "assistant" // RoleAssistant marks text produced by the planning service.
)

// Message represents a single message exchanged with the planning service.
type Message struct {
	// Role indicates who authored the message.
	Role MessageRole

	// Content is the message text.
	Content string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return &Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return &Message{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

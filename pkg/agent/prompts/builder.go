// Package prompts assembles planning prompts for the task-session loop.
package prompts

import (
	"fmt"
	"strings"

	"github.com/entrhq/surf/pkg/toolserver"
	"github.com/entrhq/surf/pkg/types"
)

// PromptBuilder constructs the planning prompt for one loop iteration.
type PromptBuilder struct {
	task       string
	tools      []toolserver.ToolDescriptor
	lastResult string
}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithTask sets the task description.
func (pb *PromptBuilder) WithTask(task string) *PromptBuilder {
	pb.task = task
	return pb
}

// WithTools sets the available tool catalog.
func (pb *PromptBuilder) WithTools(tools []toolserver.ToolDescriptor) *PromptBuilder {
	pb.tools = tools
	return pb
}

// WithLastResult sets the previous iteration's tool result, fed back as
// observation context from the second iteration onward.
func (pb *PromptBuilder) WithLastResult(result string) *PromptBuilder {
	pb.lastResult = result
	return pb
}

// Build assembles the user-turn prompt from its sections.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	builder.WriteString("<task>\n")
	builder.WriteString(pb.task)
	builder.WriteString("\n</task>\n\n")

	if len(pb.tools) > 0 {
		builder.WriteString("<available_tools>\n")
		builder.WriteString(FormatToolDescriptors(pb.tools))
		builder.WriteString("</available_tools>\n\n")
	}

	if pb.lastResult != "" {
		builder.WriteString("<previous_tool_result>\n")
		builder.WriteString(pb.lastResult)
		builder.WriteString("\n</previous_tool_result>\n\n")
	}

	builder.WriteString("Decide the next action.")
	return builder.String()
}

// BuildMessages creates the message list for one planning call.
func BuildMessages(systemPrompt, userPrompt string) []*types.Message {
	return []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(userPrompt),
	}
}

// FormatToolDescriptors renders the tool catalog for the prompt.
func FormatToolDescriptors(tools []toolserver.ToolDescriptor) string {
	var builder strings.Builder
	for _, tool := range tools {
		fmt.Fprintf(&builder, "- %s: %s\n", tool.Name, tool.Description)
		if properties, ok := tool.InputSchema["properties"].(map[string]any); ok {
			for name, raw := range properties {
				description := ""
				if prop, ok := raw.(map[string]any); ok {
					description, _ = prop["description"].(string)
				}
				fmt.Fprintf(&builder, "    %s: %s\n", name, description)
			}
		}
	}
	return builder.String()
}

package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/toolserver"
	"github.com/entrhq/surf/pkg/types"
)

func TestBuildIncludesTaskAndTools(t *testing.T) {
	prompt := NewPromptBuilder().
		WithTask("open example.com and summarize it").
		WithTools([]toolserver.ToolDescriptor{
			{Name: "browser_navigate", Description: "Navigate to a URL"},
		}).
		Build()

	assert.Contains(t, prompt, "<task>\nopen example.com and summarize it\n</task>")
	assert.Contains(t, prompt, "<available_tools>")
	assert.Contains(t, prompt, "browser_navigate: Navigate to a URL")
	assert.NotContains(t, prompt, "<previous_tool_result>")
	assert.Contains(t, prompt, "Decide the next action.")
}

func TestBuildIncludesLastResultWhenPresent(t *testing.T) {
	prompt := NewPromptBuilder().
		WithTask("task").
		WithLastResult("navigated to https://example.com/").
		Build()

	assert.Contains(t, prompt, "<previous_tool_result>\nnavigated to https://example.com/\n</previous_tool_result>")
}

func TestBuildMessages(t *testing.T) {
	messages := BuildMessages("system text", "user text")
	require.Len(t, messages, 2)
	assert.Equal(t, types.RoleSystem, messages[0].Role)
	assert.Equal(t, "system text", messages[0].Content)
	assert.Equal(t, types.RoleUser, messages[1].Role)
	assert.Equal(t, "user text", messages[1].Content)
}

func TestFormatToolDescriptorsRendersSchemaProperties(t *testing.T) {
	rendered := FormatToolDescriptors([]toolserver.ToolDescriptor{
		{
			Name:        "browser_click",
			Description: "Click an element",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"selector": map[string]any{
						"type":        "string",
						"description": "CSS selector of the element",
					},
				},
			},
		},
	})

	assert.Contains(t, rendered, "- browser_click: Click an element")
	assert.Contains(t, rendered, "selector: CSS selector of the element")
}

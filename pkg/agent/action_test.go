package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionCallTool(t *testing.T) {
	action := ParseAction(`{"action": "call_tool", "tool": "browser_navigate", "args": {"url": "https://example.com"}, "reasoning": "start at the homepage"}`)
	assert.Equal(t, ActionCallTool, action.Action)
	assert.Equal(t, "browser_navigate", action.Tool)
	assert.Equal(t, "https://example.com", action.Args["url"])
	assert.Equal(t, "start at the homepage", action.Reasoning)
}

func TestParseActionSurroundedByProse(t *testing.T) {
	text := "Sure, let me do that.\n\n" +
		`{"action": "call_tool", "tool": "browser_click", "args": {"selector": "#go"}}` +
		"\n\nThat should work."
	action := ParseAction(text)
	assert.Equal(t, ActionCallTool, action.Action)
	assert.Equal(t, "browser_click", action.Tool)
}

func TestParseActionBracesInsideStrings(t *testing.T) {
	action := ParseAction(`{"action": "call_tool", "tool": "browser_evaluate", "args": {"code": "() => { return {a: 1}; }"}}`)
	require.Equal(t, ActionCallTool, action.Action)
	assert.Equal(t, "() => { return {a: 1}; }", action.Args["code"])
}

func TestParseActionDone(t *testing.T) {
	action := ParseAction(`{"action": "done", "message": "all set"}`)
	assert.Equal(t, ActionDone, action.Action)
	assert.Equal(t, "all set", action.Message)
}

func TestParseActionPlainTextBecomesRespond(t *testing.T) {
	action := ParseAction("  I need more information to proceed.  ")
	assert.Equal(t, ActionRespond, action.Action)
	assert.Equal(t, "I need more information to proceed.", action.Message)
}

func TestParseActionMalformedJSONBecomesRespond(t *testing.T) {
	action := ParseAction(`{"action": "call_tool", "tool": `)
	assert.Equal(t, ActionRespond, action.Action)
}

func TestParseActionObjectWithoutTagBecomesRespond(t *testing.T) {
	action := ParseAction(`{"tool": "browser_click"}`)
	assert.Equal(t, ActionRespond, action.Action)
	assert.Equal(t, `{"tool": "browser_click"}`, action.Message)
}

func TestParseActionUnknownTagPreserved(t *testing.T) {
	action := ParseAction(`{"action": "launch_rocket"}`)
	assert.Equal(t, Action("launch_rocket"), action.Action)
}

func TestParseActionSkipsInvalidLeadingBraces(t *testing.T) {
	text := `{not json} {"action": "done", "message": "ok"}`
	action := ParseAction(text)
	assert.Equal(t, ActionDone, action.Action)
	assert.Equal(t, "ok", action.Message)
}

func TestActionSignatureStableAcrossKeyOrder(t *testing.T) {
	a := actionSignature("click", map[string]any{"selector": "#x", "button": "left"})
	b := actionSignature("click", map[string]any{"button": "left", "selector": "#x"})
	assert.Equal(t, a, b)

	c := actionSignature("click", map[string]any{"selector": "#y", "button": "left"})
	assert.NotEqual(t, a, c)
}

package agent

import (
	"encoding/json"
	"strings"
)

// Action tags the variants of a planned action.
type Action string

const (
	// ActionCallTool asks the controller to execute one tool call.
	ActionCallTool Action = "call_tool"

	// ActionDone reports task completion with a final message.
	ActionDone Action = "done"

	// ActionRespond replies to the user without executing anything.
	ActionRespond Action = "respond"
)

// maxPlanSize caps the planning text fed to the parser.
const maxPlanSize = 1 * 1024 * 1024

// PlannedAction is the parsed output of the planning service for one
// iteration.
type PlannedAction struct {
	Action    Action         `json:"action"`
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Reasoning string         `json:"reasoning,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// ParseAction extracts the first well-formed action object from planning
// text. Text carrying no parseable JSON object, or an object with no action
// tag, is coerced to a respond action carrying the raw text. A recognized
// tag is returned as-is; validating unknown tags is the controller's job, so
// an unrecognized tag also comes back unchanged.
func ParseAction(text string) *PlannedAction {
	if len(text) > maxPlanSize {
		text = text[:maxPlanSize]
	}

	raw, ok := extractJSONObject(text)
	if !ok {
		return respondWith(text)
	}

	var action PlannedAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return respondWith(text)
	}
	if action.Action == "" {
		return respondWith(text)
	}
	return &action
}

// respondWith coerces raw planning text into a respond action.
func respondWith(text string) *PlannedAction {
	return &PlannedAction{
		Action:  ActionRespond,
		Message: strings.TrimSpace(text),
	}
}

// extractJSONObject finds the first balanced JSON object in the text. Brace
// matching respects string literals and escapes, so prose around the object
// and braces inside argument strings do not confuse it.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start != -1 {
		if candidate, ok := balancedObject(text[start:]); ok {
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += 1 + next
	}
	return "", false
}

// balancedObject returns the prefix of text that forms one balanced brace
// pair, if any.
func balancedObject(text string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[:i+1], true
			}
		}
	}
	return "", false
}

package dispatch

import "strings"

// Category identifies a browser-operation family the live-browser handle can
// execute directly.
type Category int

const (
	CategoryNavigate Category = iota
	CategoryClick
	CategoryFill
	CategoryType
	CategoryEvaluate
	CategoryScreenshot
	CategorySnapshot
	CategoryWait
)

// String returns the category's canonical name.
func (c Category) String() string {
	switch c {
	case CategoryNavigate:
		return "navigate"
	case CategoryClick:
		return "click"
	case CategoryFill:
		return "fill"
	case CategoryType:
		return "type"
	case CategoryEvaluate:
		return "evaluate"
	case CategoryScreenshot:
		return "screenshot"
	case CategorySnapshot:
		return "snapshot"
	case CategoryWait:
		return "wait"
	default:
		return "unknown"
	}
}

// toolCategories maps lowercased tool names to their browser-operation
// category. The table is explicit and exhaustive: a name not listed here is
// subprocess-only, never guessed at by substring matching. It covers the
// naming variants of the common tool catalogs (bare names, browser_ prefixes,
// and the Playwright MCP catalog's spellings).
var toolCategories = map[string]Category{
	"navigate":            CategoryNavigate,
	"goto":                CategoryNavigate,
	"open_url":            CategoryNavigate,
	"browser_navigate":    CategoryNavigate,
	"playwright_navigate": CategoryNavigate,

	"click":         CategoryClick,
	"browser_click": CategoryClick,

	"fill":         CategoryFill,
	"fill_form":    CategoryFill,
	"browser_fill": CategoryFill,

	"type":         CategoryType,
	"type_text":    CategoryType,
	"browser_type": CategoryType,
	"press_keys":   CategoryType,

	"evaluate":         CategoryEvaluate,
	"execute_script":   CategoryEvaluate,
	"browser_evaluate": CategoryEvaluate,

	"screenshot":              CategoryScreenshot,
	"browser_screenshot":      CategoryScreenshot,
	"browser_take_screenshot": CategoryScreenshot,

	"snapshot":               CategorySnapshot,
	"browser_snapshot":       CategorySnapshot,
	"accessibility_snapshot": CategorySnapshot,

	"wait":             CategoryWait,
	"wait_for":         CategoryWait,
	"browser_wait":     CategoryWait,
	"browser_wait_for": CategoryWait,
}

// CategoryFor looks the tool name up in the routing table. The second return
// is false for unmapped names, which always execute on the subprocess
// backend.
func CategoryFor(name string) (Category, bool) {
	category, ok := toolCategories[strings.ToLower(strings.TrimSpace(name))]
	return category, ok
}

package browser

// State describes the lifecycle of a Handle's connection to a live browser.
type State int

const (
	// StateDisconnected means no live browser is attached.
	StateDisconnected State = iota

	// StateConnecting means an attach attempt is in flight.
	StateConnecting

	// StateConnected means a live browser is attached and operational.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Button specifies which mouse button to use (left, right, middle)
	Button string

	// ClickCount is the number of times to click (1 for single, 2 for double)
	ClickCount int

	// Timeout in milliseconds
	Timeout float64
}

// ScreenshotOptions configures page screenshots.
type ScreenshotOptions struct {
	// FullPage captures the whole scrollable page instead of the viewport
	FullPage bool

	// Timeout in milliseconds
	Timeout float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// Default values for browser operations.
const (
	// DefaultTimeout is the per-operation timeout in milliseconds.
	DefaultTimeout = 30000.0

	// DefaultPageKey is the page slot used when a call names no page.
	DefaultPageKey = "page-0"
)

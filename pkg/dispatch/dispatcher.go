// Package dispatch routes tool calls to one of two interchangeable backends:
// the live-browser handle when one is attached and the tool maps to a browser
// operation, or the subprocess tool-server otherwise. The subprocess peer is
// the catalog of record and the universal fallback, so every call has exactly
// one guaranteed path to success if either backend is healthy.
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/toolserver"
)

// ErrBackendUnavailable is returned when neither backend can execute a call.
var ErrBackendUnavailable = errors.New("no backend available")

// ErrToolDisabled is returned for tool names matched by a disabled pattern.
var ErrToolDisabled = errors.New("tool is disabled")

// DefaultCallTimeout bounds each backend call. A hung driver or worker fails
// that one call instead of hanging the owning session forever.
const DefaultCallTimeout = 30 * time.Second

// Browser is the live-browser backend as the dispatcher sees it.
type Browser interface {
	Connected() bool
	Navigate(pageKey, url string, opts browser.NavigateOptions) (string, error)
	Click(pageKey, target string, opts browser.ClickOptions) error
	Fill(pageKey, target, text string) error
	Type(pageKey, target, text string) error
	EvaluateText(pageKey, code string, arg interface{}) (string, error)
	Screenshot(pageKey string, opts browser.ScreenshotOptions) ([]byte, error)
	Snapshot(pageKey string) (string, error)
	WaitFor(pageKey, target string, opts browser.WaitOptions) error
}

// ToolServer is the subprocess backend as the dispatcher sees it.
type ToolServer interface {
	Connected() bool
	ListTools(ctx context.Context) ([]toolserver.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*toolserver.ToolCallResult, error)
}

// Result is the outcome of one tool call, normalized across backends.
type Result struct {
	// Text is the textual result payload.
	Text string `json:"text,omitempty"`

	// Data carries base64-encoded binary content (screenshots).
	Data string `json:"data,omitempty"`

	// MimeType describes Data when present.
	MimeType string `json:"mimeType,omitempty"`
}

// Dispatcher is the single entry point for tool execution.
type Dispatcher struct {
	browser     Browser
	toolServer  ToolServer
	disabled    func(string) bool
	callTimeout time.Duration
	log         *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDisabledTools installs a predicate that refuses matching tool names.
func WithDisabledTools(disabled func(string) bool) Option {
	return func(d *Dispatcher) {
		d.disabled = disabled
	}
}

// WithCallTimeout sets the per-call timeout for both backends.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.callTimeout = timeout
		}
	}
}

// New creates a dispatcher over the two backends. Either backend may be nil;
// calls fail with ErrBackendUnavailable only when no healthy backend remains.
func New(b Browser, ts ToolServer, opts ...Option) *Dispatcher {
	logger, _ := logging.NewLogger("dispatch")
	d := &Dispatcher{
		browser:     b,
		toolServer:  ts,
		callTimeout: DefaultCallTimeout,
		log:         logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListTools returns the tool catalog. The catalog is always sourced from the
// subprocess peer, never from the live-browser handle, regardless of which
// backend would execute a given call.
func (d *Dispatcher) ListTools(ctx context.Context) ([]toolserver.ToolDescriptor, error) {
	if d.toolServer == nil {
		return nil, ErrBackendUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.toolServer.ListTools(ctx)
}

// CallTool executes one tool call, preferring the live browser for mapped
// browser operations and falling back to the subprocess worker on failure.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	if d.disabled != nil && d.disabled(name) {
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	browserTried := false
	if category, ok := CategoryFor(name); ok && d.browser != nil && d.browser.Connected() {
		browserTried = true
		result, err := d.callBrowser(category, args)
		if err == nil {
			metricToolCalls.WithLabelValues("browser", "success").Inc()
			return result, nil
		}
		// The single documented silent fallback: a failed live-browser
		// operation is retried once against the subprocess backend.
		metricToolCalls.WithLabelValues("browser", "error").Inc()
		metricFallbacks.Inc()
		d.log.Warnf("browser %s failed, falling back to tool server: %v", category, err)
	}

	if d.toolServer == nil {
		return nil, ErrBackendUnavailable
	}

	toolResult, err := d.toolServer.CallTool(ctx, name, args)
	if err != nil {
		metricToolCalls.WithLabelValues("toolserver", "error").Inc()
		if errors.Is(err, toolserver.ErrNotConnected) && !browserTried {
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
		}
		return nil, err
	}

	metricToolCalls.WithLabelValues("toolserver", "success").Inc()
	result := &Result{Text: toolResult.Text()}
	for _, block := range toolResult.Content {
		if block.Data != "" {
			result.Data = block.Data
			result.MimeType = block.MimeType
			break
		}
	}
	return result, nil
}

// callBrowser maps a category plus generic arguments onto the matching
// live-browser operation.
func (d *Dispatcher) callBrowser(category Category, args map[string]any) (*Result, error) {
	pageKey := stringArg(args, "page", "pageKey", "session")

	switch category {
	case CategoryNavigate:
		url := stringArg(args, "url")
		if url == "" {
			return nil, fmt.Errorf("url is required for navigate")
		}
		finalURL, err := d.browser.Navigate(pageKey, url, browser.NavigateOptions{
			WaitUntil: stringArg(args, "waitUntil", "wait_until"),
			Timeout:   floatArg(args, "timeout"),
		})
		if err != nil {
			return nil, err
		}
		return &Result{Text: fmt.Sprintf("navigated to %s", finalURL)}, nil

	case CategoryClick:
		target := stringArg(args, "selector", "target", "element")
		if target == "" {
			return nil, fmt.Errorf("selector is required for click")
		}
		err := d.browser.Click(pageKey, target, browser.ClickOptions{
			Button:     stringArg(args, "button"),
			ClickCount: intArg(args, "clickCount", "click_count"),
			Timeout:    floatArg(args, "timeout"),
		})
		if err != nil {
			return nil, err
		}
		return &Result{Text: fmt.Sprintf("clicked %s", target)}, nil

	case CategoryFill:
		target := stringArg(args, "selector", "target", "element")
		if target == "" {
			return nil, fmt.Errorf("selector is required for fill")
		}
		text := stringArg(args, "text", "value")
		if err := d.browser.Fill(pageKey, target, text); err != nil {
			return nil, err
		}
		return &Result{Text: fmt.Sprintf("filled %s", target)}, nil

	case CategoryType:
		target := stringArg(args, "selector", "target", "element")
		if target == "" {
			return nil, fmt.Errorf("selector is required for type")
		}
		text := stringArg(args, "text", "value")
		if err := d.browser.Type(pageKey, target, text); err != nil {
			return nil, err
		}
		return &Result{Text: fmt.Sprintf("typed into %s", target)}, nil

	case CategoryEvaluate:
		code := stringArg(args, "code", "script", "function", "expression")
		if code == "" {
			return nil, fmt.Errorf("code is required for evaluate")
		}
		text, err := d.browser.EvaluateText(pageKey, code, args["arg"])
		if err != nil {
			return nil, err
		}
		return &Result{Text: text}, nil

	case CategoryScreenshot:
		data, err := d.browser.Screenshot(pageKey, browser.ScreenshotOptions{
			FullPage: boolArg(args, "fullPage", "full_page"),
			Timeout:  floatArg(args, "timeout"),
		})
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: "image/png",
		}, nil

	case CategorySnapshot:
		tree, err := d.browser.Snapshot(pageKey)
		if err != nil {
			return nil, err
		}
		return &Result{Text: tree}, nil

	case CategoryWait:
		target := stringArg(args, "selector", "target", "element")
		if target == "" {
			return nil, fmt.Errorf("selector is required for wait")
		}
		err := d.browser.WaitFor(pageKey, target, browser.WaitOptions{
			State:   stringArg(args, "state"),
			Timeout: floatArg(args, "timeout"),
		})
		if err != nil {
			return nil, err
		}
		return &Result{Text: fmt.Sprintf("condition met for %s", target)}, nil

	default:
		return nil, fmt.Errorf("unhandled category %s", category)
	}
}

// stringArg returns the first present string value among the keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := args[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// floatArg returns the first present numeric value among the keys.
func floatArg(args map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch value := args[key].(type) {
		case float64:
			return value
		case int:
			return float64(value)
		}
	}
	return 0
}

// intArg returns the first present integer value among the keys.
func intArg(args map[string]any, keys ...string) int {
	for _, key := range keys {
		switch value := args[key].(type) {
		case int:
			return value
		case float64:
			return int(value)
		}
	}
	return 0
}

// boolArg returns the first present boolean value among the keys.
func boolArg(args map[string]any, keys ...string) bool {
	for _, key := range keys {
		if value, ok := args[key].(bool); ok {
			return value
		}
	}
	return false
}

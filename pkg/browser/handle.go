package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/surf/pkg/logging"
)

// Handle wraps a connection to an externally-owned, already-running browser
// process reached over the Chrome DevTools protocol. It owns one browser
// context and a keyed collection of page handles, and never terminates the
// browser process it is attached to.
type Handle struct {
	mu      sync.Mutex
	state   State
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	pages   map[string]playwright.Page

	endpoint string
	timeout  float64
	log      *logging.Logger
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithOperationTimeout sets the default per-operation timeout in milliseconds.
func WithOperationTimeout(ms float64) HandleOption {
	return func(h *Handle) {
		if ms > 0 {
			h.timeout = ms
		}
	}
}

// NewHandle creates a disconnected live-browser handle.
func NewHandle(opts ...HandleOption) *Handle {
	logger, _ := logging.NewLogger("browser")
	h := &Handle{
		state:   StateDisconnected,
		pages:   make(map[string]playwright.Page),
		timeout: DefaultTimeout,
		log:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect attaches to a running browser at the given debug endpoint.
//
// If the process exposes at least one existing browsing context it is reused,
// otherwise a new one is created. Existing pages are indexed into the page
// collection under stable keys (page-0, page-1, ...); if the context has no
// pages, one is created. Failure leaves the handle disconnected and the
// caller must fall back to the subprocess backend.
func (h *Handle) Connect(endpoint string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateConnected {
		if h.endpoint == endpoint {
			return nil
		}
		return fmt.Errorf("already connected to %s", h.endpoint)
	}

	h.state = StateConnecting

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		h.state = StateDisconnected
		return fmt.Errorf("failed to start playwright driver: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		pw.Stop()
		h.state = StateDisconnected
		return fmt.Errorf("failed to attach to browser at %s: %w", endpoint, err)
	}

	// Reuse the browser's existing context when it exposes one. A freshly
	// started browser with --remote-debugging-port always has a default
	// context holding its open tabs.
	var context playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		context = contexts[0]
	} else {
		context, err = browser.NewContext()
		if err != nil {
			pw.Stop()
			h.state = StateDisconnected
			return fmt.Errorf("failed to create browser context: %w", err)
		}
	}

	pages := make(map[string]playwright.Page)
	for i, page := range context.Pages() {
		key := fmt.Sprintf("page-%d", i)
		page.SetDefaultTimeout(h.timeout)
		pages[key] = page
	}
	if len(pages) == 0 {
		page, err := context.NewPage()
		if err != nil {
			pw.Stop()
			h.state = StateDisconnected
			return fmt.Errorf("failed to create page: %w", err)
		}
		page.SetDefaultTimeout(h.timeout)
		pages[DefaultPageKey] = page
	}

	h.pw = pw
	h.browser = browser
	h.context = context
	h.pages = pages
	h.endpoint = endpoint
	h.state = StateConnected

	h.log.Infof("attached to live browser at %s (%d existing pages)", endpoint, len(pages))
	return nil
}

// Connected reports whether a live browser is attached.
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateConnected
}

// State returns the handle's current connection state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Endpoint returns the debug endpoint of the attached browser, or "" when
// disconnected.
func (h *Handle) Endpoint() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateConnected {
		return ""
	}
	return h.endpoint
}

// Disconnect severs the connection and releases the handle's local
// references. It must never instruct the attached browser to close:
// the live browser process keeps running after this call returns.
func (h *Handle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateDisconnected {
		return nil
	}

	// Stopping the driver severs the CDP transport. No context, page, or
	// browser close is ever sent to the attached process.
	if h.pw != nil {
		if err := h.pw.Stop(); err != nil {
			h.log.Warnf("error stopping playwright driver: %v", err)
		}
	}

	h.pw = nil
	h.browser = nil
	h.context = nil
	h.pages = make(map[string]playwright.Page)
	h.endpoint = ""
	h.state = StateDisconnected

	h.log.Infof("detached from live browser")
	return nil
}

// page resolves the page for the given key, lazily creating one on first
// reference to an unknown key. An empty key selects the default slot.
func (h *Handle) page(key string) (playwright.Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateConnected {
		return nil, fmt.Errorf("not connected to a live browser")
	}

	if key == "" {
		key = DefaultPageKey
	}

	if page, ok := h.pages[key]; ok {
		return page, nil
	}

	page, err := h.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page %q: %w", key, err)
	}
	page.SetDefaultTimeout(h.timeout)
	h.pages[key] = page
	h.log.Debugf("created page %q", key)
	return page, nil
}

// PageKeys returns the keys of all pages currently indexed by the handle.
func (h *Handle) PageKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := make([]string, 0, len(h.pages))
	for key := range h.pages {
		keys = append(keys, key)
	}
	return keys
}

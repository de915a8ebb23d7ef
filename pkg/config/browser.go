package config

import (
	"os"
	"strings"
	"sync"
)

const (
	// SectionIDBrowser is the identifier for the live-browser settings section
	SectionIDBrowser = "browser"

	// EnvBrowserEndpoint overrides the configured debugging endpoint.
	EnvBrowserEndpoint = "SURF_BROWSER_ENDPOINT"

	// EnvDisableLiveBrowser disables live-browser attachment entirely when
	// set to a truthy value.
	EnvDisableLiveBrowser = "SURF_DISABLE_LIVE_BROWSER"
)

// BrowserSection manages live-browser attachment settings.
type BrowserSection struct {
	Endpoint           string
	DisableLiveBrowser bool
	DebugPorts         []int
	CallTimeoutSeconds int
	mu                 sync.RWMutex
}

// NewBrowserSection creates a new browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure live-browser attachment. Leave endpoint empty to auto-detect a local debugging port. SURF_BROWSER_ENDPOINT and SURF_DISABLE_LIVE_BROWSER take precedence over these values."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ports := make([]any, 0, len(s.DebugPorts))
	for _, port := range s.DebugPorts {
		ports = append(ports, port)
	}
	return map[string]any{
		"endpoint":             s.Endpoint,
		"disable_live_browser": s.DisableLiveBrowser,
		"debug_ports":          ports,
		"call_timeout_seconds": s.CallTimeoutSeconds,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if endpoint, ok := data["endpoint"].(string); ok {
		s.Endpoint = endpoint
	}

	if disable, ok := data["disable_live_browser"].(bool); ok {
		s.DisableLiveBrowser = disable
	}

	if rawPorts, ok := data["debug_ports"].([]any); ok {
		ports := make([]int, 0, len(rawPorts))
		for _, raw := range rawPorts {
			switch value := raw.(type) {
			case int:
				ports = append(ports, value)
			case float64:
				// JSON numbers decode as float64.
				ports = append(ports, int(value))
			}
		}
		s.DebugPorts = ports
	}

	if timeout, ok := data["call_timeout_seconds"].(float64); ok {
		s.CallTimeoutSeconds = int(timeout)
	} else if timeout, ok := data["call_timeout_seconds"].(int); ok {
		s.CallTimeoutSeconds = timeout
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Endpoint = ""
	s.DisableLiveBrowser = false
	s.DebugPorts = nil
	s.CallTimeoutSeconds = 0
}

// GetEndpoint returns the debugging endpoint to attach to. The
// SURF_BROWSER_ENDPOINT environment variable wins over the stored value; an
// empty result means auto-detect.
func (s *BrowserSection) GetEndpoint() string {
	if endpoint := strings.TrimSpace(os.Getenv(EnvBrowserEndpoint)); endpoint != "" {
		return endpoint
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Endpoint
}

// LiveBrowserDisabled reports whether live-browser attachment is switched
// off. The SURF_DISABLE_LIVE_BROWSER environment variable wins over the
// stored value.
func (s *BrowserSection) LiveBrowserDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvDisableLiveBrowser))) {
	case "1", "true", "yes":
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DisableLiveBrowser
}

// GetDebugPorts returns the configured detection ports, or nil to use the
// default candidates.
func (s *BrowserSection) GetDebugPorts() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.DebugPorts) == 0 {
		return nil
	}
	ports := make([]int, len(s.DebugPorts))
	copy(ports, s.DebugPorts)
	return ports
}

// GetCallTimeoutSeconds returns the per-call timeout, or 0 for the default.
func (s *BrowserSection) GetCallTimeoutSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CallTimeoutSeconds
}

package config

import (
	"sync"
)

const (
	// SectionIDToolServer is the identifier for the tool-server settings section
	SectionIDToolServer = "toolserver"
)

// ToolServerSection manages subprocess tool-server settings.
type ToolServerSection struct {
	Command        string
	TimeoutSeconds int
	mu             sync.RWMutex
}

// NewToolServerSection creates a new tool-server section with default
// settings.
func NewToolServerSection() *ToolServerSection {
	return &ToolServerSection{}
}

// ID returns the section identifier.
func (s *ToolServerSection) ID() string {
	return SectionIDToolServer
}

// Title returns the section title.
func (s *ToolServerSection) Title() string {
	return "Tool Server Settings"
}

// Description returns the section description.
func (s *ToolServerSection) Description() string {
	return "Configure the subprocess tool server. Leave command empty to launch the bundled Playwright MCP worker. SURF_TOOLSERVER_CMD takes precedence over these values."
}

// Data returns the current configuration data.
func (s *ToolServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"command":         s.Command,
		"timeout_seconds": s.TimeoutSeconds,
	}
}

// SetData updates the configuration from the provided data.
func (s *ToolServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if command, ok := data["command"].(string); ok {
		s.Command = command
	}

	if timeout, ok := data["timeout_seconds"].(float64); ok {
		s.TimeoutSeconds = int(timeout)
	} else if timeout, ok := data["timeout_seconds"].(int); ok {
		s.TimeoutSeconds = timeout
	}

	return nil
}

// Validate validates the current configuration.
func (s *ToolServerSection) Validate() error {
	return nil
}

// Reset resets the section to default configuration.
func (s *ToolServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Command = ""
	s.TimeoutSeconds = 0
}

// GetCommand returns the configured worker command line, or empty for the
// default worker.
func (s *ToolServerSection) GetCommand() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Command
}

// GetTimeoutSeconds returns the per-request timeout, or 0 for the default.
func (s *ToolServerSection) GetTimeoutSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TimeoutSeconds
}

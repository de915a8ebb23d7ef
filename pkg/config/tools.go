package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDDisabledTools is the identifier for the disabled-tools section
	SectionIDDisabledTools = "disabled_tools"
)

// DisabledToolsSection manages glob patterns for tool names that must never
// execute on any backend.
type DisabledToolsSection struct {
	Patterns []string
	compiled []glob.Glob
	mu       sync.RWMutex
}

// NewDisabledToolsSection creates a new disabled-tools section with no
// patterns.
func NewDisabledToolsSection() *DisabledToolsSection {
	return &DisabledToolsSection{}
}

// ID returns the section identifier.
func (s *DisabledToolsSection) ID() string {
	return SectionIDDisabledTools
}

// Title returns the section title.
func (s *DisabledToolsSection) Title() string {
	return "Disabled Tools"
}

// Description returns the section description.
func (s *DisabledToolsSection) Description() string {
	return "Glob patterns for tool names that are refused before dispatch, e.g. \"browser_pdf_*\"."
}

// Data returns the current configuration data.
func (s *DisabledToolsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]any, 0, len(s.Patterns))
	for _, pattern := range s.Patterns {
		patterns = append(patterns, pattern)
	}
	return map[string]any{
		"patterns": patterns,
	}
}

// SetData updates the configuration from the provided data. Patterns are
// compiled eagerly so invalid ones surface at load time.
func (s *DisabledToolsSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	rawPatterns, ok := data["patterns"].([]any)
	if !ok {
		return nil
	}

	patterns := make([]string, 0, len(rawPatterns))
	compiled := make([]glob.Glob, 0, len(rawPatterns))
	for _, raw := range rawPatterns {
		pattern, ok := raw.(string)
		if !ok || strings.TrimSpace(pattern) == "" {
			continue
		}
		matcher, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid disabled-tool pattern %q: %w", pattern, err)
		}
		patterns = append(patterns, pattern)
		compiled = append(compiled, matcher)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Patterns = patterns
	s.compiled = compiled
	return nil
}

// Validate validates the current configuration.
func (s *DisabledToolsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pattern := range s.Patterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid disabled-tool pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *DisabledToolsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Patterns = nil
	s.compiled = nil
}

// IsToolDisabled reports whether the tool name matches any disabled pattern.
func (s *DisabledToolsSection) IsToolDisabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = strings.ToLower(strings.TrimSpace(name))
	for _, matcher := range s.compiled {
		if matcher.Match(name) {
			return true
		}
	}
	return false
}

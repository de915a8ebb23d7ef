package config

import (
	"sync"
)

const (
	// SectionIDServer is the identifier for the HTTP server settings section
	SectionIDServer = "server"

	// DefaultListenAddr is the HTTP boundary's default bind address.
	DefaultListenAddr = "127.0.0.1:8700"
)

// ServerSection manages HTTP boundary settings.
type ServerSection struct {
	Addr string
	mu   sync.RWMutex
}

// NewServerSection creates a new server section with default settings.
func NewServerSection() *ServerSection {
	return &ServerSection{}
}

// ID returns the section identifier.
func (s *ServerSection) ID() string {
	return SectionIDServer
}

// Title returns the section title.
func (s *ServerSection) Title() string {
	return "Server Settings"
}

// Description returns the section description.
func (s *ServerSection) Description() string {
	return "Configure the HTTP listen address."
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"addr": s.Addr,
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if addr, ok := data["addr"].(string); ok {
		s.Addr = addr
	}

	return nil
}

// Validate validates the current configuration.
func (s *ServerSection) Validate() error {
	return nil
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Addr = ""
}

// GetAddr returns the listen address, defaulting when unset.
func (s *ServerSection) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Addr == "" {
		return DefaultListenAddr
	}
	return s.Addr
}

package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	// Create file store
	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	// Create manager
	manager := NewManager(store)

	// Register default sections
	if err := manager.RegisterSection(NewLLMSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewToolServerSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewServerSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewDisabledToolsSection()); err != nil {
		return err
	}

	// Load configuration
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDLLM)
	if !ok {
		return nil
	}

	llm, ok := section.(*LLMSection)
	if !ok {
		return nil
	}

	return llm
}

// GetBrowser returns the browser settings section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}

	browser, ok := section.(*BrowserSection)
	if !ok {
		return nil
	}

	return browser
}

// GetToolServer returns the tool-server settings section from global config.
// Returns nil if config is not initialized.
func GetToolServer() *ToolServerSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDToolServer)
	if !ok {
		return nil
	}

	toolServer, ok := section.(*ToolServerSection)
	if !ok {
		return nil
	}

	return toolServer
}

// GetServer returns the server settings section from global config.
// Returns nil if config is not initialized.
func GetServer() *ServerSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDServer)
	if !ok {
		return nil
	}

	server, ok := section.(*ServerSection)
	if !ok {
		return nil
	}

	return server
}

// GetDisabledTools returns the disabled-tools section from global config.
// Returns nil if config is not initialized.
func GetDisabledTools() *DisabledToolsSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDDisabledTools)
	if !ok {
		return nil
	}

	disabled, ok := section.(*DisabledToolsSection)
	if !ok {
		return nil
	}

	return disabled
}

// IsToolDisabled checks if a tool name matches a disabled pattern.
// Returns false if config is not initialized.
func IsToolDisabled(name string) bool {
	disabled := GetDisabledTools()
	if disabled == nil {
		return false
	}
	return disabled.IsToolDisabled(name)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMSectionRoundTrip(t *testing.T) {
	section := NewLLMSection()
	require.NoError(t, section.SetData(map[string]any{
		"model":    "gpt-4o",
		"base_url": "https://llm.internal/v1",
		"api_key":  "sk-test",
	}))

	assert.Equal(t, "gpt-4o", section.GetModel())
	assert.Equal(t, "https://llm.internal/v1", section.GetBaseURL())
	assert.Equal(t, "sk-test", section.GetAPIKey())

	data := section.Data()
	assert.Equal(t, "gpt-4o", data["model"])

	section.Reset()
	assert.Empty(t, section.GetModel())
}

func TestBrowserSectionEnvOverrides(t *testing.T) {
	section := NewBrowserSection()
	require.NoError(t, section.SetData(map[string]any{
		"endpoint":             "http://127.0.0.1:9222",
		"disable_live_browser": false,
	}))

	assert.Equal(t, "http://127.0.0.1:9222", section.GetEndpoint())
	assert.False(t, section.LiveBrowserDisabled())

	t.Setenv(EnvBrowserEndpoint, "http://127.0.0.1:9333")
	t.Setenv(EnvDisableLiveBrowser, "true")

	assert.Equal(t, "http://127.0.0.1:9333", section.GetEndpoint())
	assert.True(t, section.LiveBrowserDisabled())
}

func TestBrowserSectionDebugPortsFromJSON(t *testing.T) {
	section := NewBrowserSection()
	// JSON decoding hands numbers over as float64.
	require.NoError(t, section.SetData(map[string]any{
		"debug_ports": []any{float64(9222), float64(9333)},
	}))

	assert.Equal(t, []int{9222, 9333}, section.GetDebugPorts())
}

func TestBrowserSectionEmptyPortsMeansDefaults(t *testing.T) {
	section := NewBrowserSection()
	assert.Nil(t, section.GetDebugPorts())
}

func TestToolServerSectionRoundTrip(t *testing.T) {
	section := NewToolServerSection()
	require.NoError(t, section.SetData(map[string]any{
		"command":         "npx @playwright/mcp@latest",
		"timeout_seconds": float64(45),
	}))

	assert.Equal(t, "npx @playwright/mcp@latest", section.GetCommand())
	assert.Equal(t, 45, section.GetTimeoutSeconds())
}

func TestServerSectionDefaultAddr(t *testing.T) {
	section := NewServerSection()
	assert.Equal(t, DefaultListenAddr, section.GetAddr())

	require.NoError(t, section.SetData(map[string]any{"addr": "0.0.0.0:9000"}))
	assert.Equal(t, "0.0.0.0:9000", section.GetAddr())
}

func TestDisabledToolsSectionMatching(t *testing.T) {
	section := NewDisabledToolsSection()
	require.NoError(t, section.SetData(map[string]any{
		"patterns": []any{"browser_pdf_*", "dangerous_tool"},
	}))

	assert.True(t, section.IsToolDisabled("browser_pdf_save"))
	assert.True(t, section.IsToolDisabled("DANGEROUS_TOOL"))
	assert.False(t, section.IsToolDisabled("browser_navigate"))
}

func TestDisabledToolsSectionRejectsInvalidPattern(t *testing.T) {
	section := NewDisabledToolsSection()
	err := section.SetData(map[string]any{
		"patterns": []any{"[unclosed"},
	})
	assert.Error(t, err)
}

func TestDisabledToolsSectionEmpty(t *testing.T) {
	section := NewDisabledToolsSection()
	assert.False(t, section.IsToolDisabled("anything"))
}

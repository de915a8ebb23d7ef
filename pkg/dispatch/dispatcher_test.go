package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/toolserver"
)

// fakeBrowser implements the Browser backend with scriptable failures.
type fakeBrowser struct {
	connected bool
	failAll   bool
	calls     []string
}

func (f *fakeBrowser) record(op string) error {
	f.calls = append(f.calls, op)
	if f.failAll {
		return errors.New("browser operation failed")
	}
	return nil
}

func (f *fakeBrowser) Connected() bool { return f.connected }

func (f *fakeBrowser) Navigate(_, url string, _ browser.NavigateOptions) (string, error) {
	if err := f.record("navigate"); err != nil {
		return "", err
	}
	return url, nil
}

func (f *fakeBrowser) Click(_, _ string, _ browser.ClickOptions) error {
	return f.record("click")
}

func (f *fakeBrowser) Fill(_, _, _ string) error {
	return f.record("fill")
}

func (f *fakeBrowser) Type(_, _, _ string) error {
	return f.record("type")
}

func (f *fakeBrowser) EvaluateText(_, _ string, _ interface{}) (string, error) {
	if err := f.record("evaluate"); err != nil {
		return "", err
	}
	return `{"selector": "#found"}`, nil
}

func (f *fakeBrowser) Screenshot(_ string, _ browser.ScreenshotOptions) ([]byte, error) {
	if err := f.record("screenshot"); err != nil {
		return nil, err
	}
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (f *fakeBrowser) Snapshot(_ string) (string, error) {
	if err := f.record("snapshot"); err != nil {
		return "", err
	}
	return `{"tag": "html"}`, nil
}

func (f *fakeBrowser) WaitFor(_, _ string, _ browser.WaitOptions) error {
	return f.record("wait")
}

// fakeToolServer implements the ToolServer backend.
type fakeToolServer struct {
	connected bool
	callErr   error
	result    *toolserver.ToolCallResult
	calls     []string
}

func (f *fakeToolServer) Connected() bool { return f.connected }

func (f *fakeToolServer) ListTools(_ context.Context) ([]toolserver.ToolDescriptor, error) {
	return []toolserver.ToolDescriptor{{Name: "browser_navigate"}}, nil
}

func (f *fakeToolServer) CallTool(_ context.Context, name string, _ map[string]any) (*toolserver.ToolCallResult, error) {
	f.calls = append(f.calls, name)
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &toolserver.ToolCallResult{
		Content: []toolserver.ContentBlock{{Type: "text", Text: "worker handled " + name}},
	}, nil
}

func TestCategoryForRoutingTable(t *testing.T) {
	tests := []struct {
		name     string
		category Category
	}{
		{"navigate", CategoryNavigate},
		{"browser_navigate", CategoryNavigate},
		{"goto", CategoryNavigate},
		{"browser_click", CategoryClick},
		{"browser_fill", CategoryFill},
		{"browser_type", CategoryType},
		{"press_keys", CategoryType},
		{"execute_script", CategoryEvaluate},
		{"browser_take_screenshot", CategoryScreenshot},
		{"browser_snapshot", CategorySnapshot},
		{"browser_wait_for", CategoryWait},
		{"Browser_Click", CategoryClick}, // case-insensitive
	}

	for _, tt := range tests {
		category, ok := CategoryFor(tt.name)
		require.True(t, ok, "expected %q to be mapped", tt.name)
		assert.Equal(t, tt.category, category, tt.name)
	}
}

func TestCategoryForUnmappedNames(t *testing.T) {
	// No substring guessing: names merely containing an operation word
	// stay unmapped.
	for _, name := range []string{"browser_pdf_save", "clickhouse_query", "navigate_menu_tree", "unknown"} {
		_, ok := CategoryFor(name)
		assert.False(t, ok, "expected %q to be unmapped", name)
	}
}

func TestCallToolPrefersBrowserWhenConnected(t *testing.T) {
	b := &fakeBrowser{connected: true}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	result, err := d.CallTool(context.Background(), "browser_navigate", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "https://example.com")
	assert.Equal(t, []string{"navigate"}, b.calls)
	assert.Empty(t, ts.calls)
}

func TestCallToolFallsBackOnBrowserFailure(t *testing.T) {
	b := &fakeBrowser{connected: true, failAll: true}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	result, err := d.CallTool(context.Background(), "browser_click", map[string]any{"selector": "#go"})
	require.NoError(t, err)
	assert.Equal(t, "worker handled browser_click", result.Text)
	assert.Equal(t, []string{"click"}, b.calls)
	assert.Equal(t, []string{"browser_click"}, ts.calls)
}

func TestCallToolSubprocessWhenBrowserDisconnected(t *testing.T) {
	b := &fakeBrowser{connected: false}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	_, err := d.CallTool(context.Background(), "browser_click", map[string]any{"selector": "#go"})
	require.NoError(t, err)
	assert.Empty(t, b.calls)
	assert.Equal(t, []string{"browser_click"}, ts.calls)
}

func TestCallToolUnmappedAlwaysSubprocess(t *testing.T) {
	b := &fakeBrowser{connected: true}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	_, err := d.CallTool(context.Background(), "browser_pdf_save", nil)
	require.NoError(t, err)
	assert.Empty(t, b.calls)
	assert.Equal(t, []string{"browser_pdf_save"}, ts.calls)
}

func TestCallToolDisabled(t *testing.T) {
	d := New(&fakeBrowser{connected: true}, &fakeToolServer{connected: true},
		WithDisabledTools(func(name string) bool { return name == "browser_pdf_save" }))

	_, err := d.CallTool(context.Background(), "browser_pdf_save", nil)
	assert.ErrorIs(t, err, ErrToolDisabled)

	_, err = d.CallTool(context.Background(), "browser_navigate", map[string]any{"url": "https://example.com"})
	assert.NoError(t, err)
}

func TestCallToolNoBackends(t *testing.T) {
	d := New(nil, nil)
	_, err := d.CallTool(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestCallToolWorkerNotConnected(t *testing.T) {
	ts := &fakeToolServer{callErr: toolserver.ErrNotConnected}
	d := New(nil, ts)

	_, err := d.CallTool(context.Background(), "browser_navigate", map[string]any{"url": "https://example.com"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestCallToolScreenshotReturnsBase64(t *testing.T) {
	b := &fakeBrowser{connected: true}
	d := New(b, &fakeToolServer{connected: true})

	result, err := d.CallTool(context.Background(), "browser_take_screenshot", nil)
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MimeType)

	decoded, err := base64.StdEncoding.DecodeString(result.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, decoded)
}

func TestCallToolWorkerBinaryContent(t *testing.T) {
	ts := &fakeToolServer{
		connected: true,
		result: &toolserver.ToolCallResult{
			Content: []toolserver.ContentBlock{
				{Type: "text", Text: "screenshot taken"},
				{Type: "image", Data: "aGVsbG8=", MimeType: "image/png"},
			},
		},
	}
	d := New(nil, ts)

	result, err := d.CallTool(context.Background(), "browser_take_screenshot", nil)
	require.NoError(t, err)
	assert.Equal(t, "screenshot taken", result.Text)
	assert.Equal(t, "aGVsbG8=", result.Data)
	assert.Equal(t, "image/png", result.MimeType)
}

func TestCallToolArgumentAliases(t *testing.T) {
	b := &fakeBrowser{connected: true}
	d := New(b, &fakeToolServer{connected: true})

	// target and element are accepted aliases for selector.
	_, err := d.CallTool(context.Background(), "browser_click", map[string]any{"element": "#go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"click"}, b.calls)
}

func TestCallToolMissingRequiredArgFallsBack(t *testing.T) {
	b := &fakeBrowser{connected: true}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	// No url: the browser path rejects the call, the worker gets it.
	result, err := d.CallTool(context.Background(), "browser_navigate", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "worker handled browser_navigate", result.Text)
}

func TestListToolsAlwaysFromWorker(t *testing.T) {
	b := &fakeBrowser{connected: true}
	ts := &fakeToolServer{connected: true}
	d := New(b, ts)

	tools, err := d.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "browser_navigate", tools[0].Name)
}

func TestListToolsNoWorker(t *testing.T) {
	d := New(&fakeBrowser{connected: true}, nil)
	_, err := d.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

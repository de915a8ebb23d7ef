package browser

import (
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Navigate navigates the page at the given key to the URL and returns the
// page's URL after navigation settles.
func (h *Handle) Navigate(pageKey, url string, opts NavigateOptions) (string, error) {
	page, err := h.page(pageKey)
	if err != nil {
		return "", err
	}

	playwrightOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := page.Goto(url, playwrightOpts); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	return page.URL(), nil
}

// Click clicks the element matching the target selector.
func (h *Handle) Click(pageKey, target string, opts ClickOptions) error {
	page, err := h.page(pageKey)
	if err != nil {
		return err
	}

	playwrightOpts := playwright.PageClickOptions{}
	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		playwrightOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		playwrightOpts.ClickCount = &opts.ClickCount
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := page.Click(target, playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill sets the value of the input element matching the target selector,
// replacing any existing content.
func (h *Handle) Fill(pageKey, target, text string) error {
	page, err := h.page(pageKey)
	if err != nil {
		return err
	}

	if err := page.Fill(target, text); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Type sends the text to the element matching the target selector one
// character at a time, as a user typing would.
func (h *Handle) Type(pageKey, target, text string) error {
	page, err := h.page(pageKey)
	if err != nil {
		return err
	}

	if err := page.Locator(target).PressSequentially(text); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

// Evaluate executes JavaScript in the page context and returns its result.
// The code may be an expression or function source; when arg is non-nil it is
// passed to the function as its single argument.
func (h *Handle) Evaluate(pageKey, code string, arg interface{}) (interface{}, error) {
	page, err := h.page(pageKey)
	if err != nil {
		return nil, err
	}

	var result interface{}
	if arg != nil {
		result, err = page.Evaluate(code, arg)
	} else {
		result, err = page.Evaluate(code)
	}
	if err != nil {
		return nil, fmt.Errorf("javascript execution failed: %w", err)
	}
	return result, nil
}

// EvaluateText executes JavaScript and renders the result as text, using
// indented JSON for structured values.
func (h *Handle) EvaluateText(pageKey, code string, arg interface{}) (string, error) {
	result, err := h.Evaluate(pageKey, code, arg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "undefined", nil
	}
	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result), nil
	}
	return string(jsonBytes), nil
}

// Screenshot captures the page as a PNG image.
func (h *Handle) Screenshot(pageKey string, opts ScreenshotOptions) ([]byte, error) {
	page, err := h.page(pageKey)
	if err != nil {
		return nil, err
	}

	playwrightOpts := playwright.PageScreenshotOptions{}
	if opts.FullPage {
		playwrightOpts.FullPage = playwright.Bool(true)
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	data, err := page.Screenshot(playwrightOpts)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// WaitFor waits until the element matching the target selector reaches the
// requested state.
func (h *Handle) WaitFor(pageKey, target string, opts WaitOptions) error {
	page, err := h.page(pageKey)
	if err != nil {
		return err
	}

	if target == "" {
		return fmt.Errorf("selector is required for wait")
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := page.WaitForSelector(target, playwrightOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

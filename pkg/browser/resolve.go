package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TargetKind selects which family of page elements a resolution script
// searches: input-like elements for text entry, clickable elements for clicks.
type TargetKind string

const (
	// TargetInput resolves against visible input-like elements.
	TargetInput TargetKind = "input"

	// TargetClickable resolves against visible clickable elements.
	TargetClickable TargetKind = "clickable"
)

// ErrTargetNotFound is returned when no visible candidate matches the hint.
var ErrTargetNotFound = errors.New("no matching element found")

// The resolution scripts are fixed, read-only, data-only routines. The
// natural-language hint travels as the function argument; no code is ever
// synthesized from planning text. Each script collects visible candidates of
// its kind, prefers one whose placeholder/label/accessible-name contains the
// hint (case-insensitive substring), falls back to the first visible
// candidate, and returns a stable selector preferring id, then name, then a
// positional selector, or null when nothing matches.
const (
	findInputScript = `(hint) => {
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    const s = window.getComputedStyle(el);
    return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
  };
  const label = (el) => {
    const bits = [el.placeholder, el.getAttribute('aria-label'), el.name, el.id, el.title];
    const lab = el.labels && el.labels.length ? el.labels[0].textContent : '';
    bits.push(lab);
    return bits.filter(Boolean).join(' ').toLowerCase();
  };
  const selectorFor = (el, idx) => {
    if (el.id) return '#' + CSS.escape(el.id);
    if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
    return el.tagName.toLowerCase() + ':nth-of-type(' + idx + ')';
  };
  const kinds = 'input:not([type=hidden]), textarea, [contenteditable=true]';
  const candidates = Array.from(document.querySelectorAll(kinds)).filter(visible);
  if (candidates.length === 0) return null;
  let chosen = candidates[0];
  if (hint) {
    const needle = String(hint).toLowerCase();
    const match = candidates.find((el) => label(el).includes(needle));
    if (match) chosen = match;
  }
  const sameTag = Array.from(document.querySelectorAll(chosen.tagName.toLowerCase()));
  return { selector: selectorFor(chosen, sameTag.indexOf(chosen) + 1) };
}`

	findClickableScript = `(hint) => {
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    const s = window.getComputedStyle(el);
    return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
  };
  const label = (el) => {
    const bits = [el.textContent, el.getAttribute('aria-label'), el.value, el.name, el.id, el.title];
    return bits.filter(Boolean).join(' ').toLowerCase();
  };
  const selectorFor = (el, idx) => {
    if (el.id) return '#' + CSS.escape(el.id);
    if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
    return el.tagName.toLowerCase() + ':nth-of-type(' + idx + ')';
  };
  const kinds = 'a[href], button, [role=button], input[type=submit], input[type=button]';
  const candidates = Array.from(document.querySelectorAll(kinds)).filter(visible);
  if (candidates.length === 0) return null;
  let chosen = candidates[0];
  if (hint) {
    const needle = String(hint).toLowerCase();
    const match = candidates.find((el) => label(el).includes(needle));
    if (match) chosen = match;
  }
  const sameTag = Array.from(document.querySelectorAll(chosen.tagName.toLowerCase()));
  return { selector: selectorFor(chosen, sameTag.indexOf(chosen) + 1) };
}`
)

// ResolveScript returns the page-side routine for the given target kind.
func ResolveScript(kind TargetKind) (string, error) {
	switch kind {
	case TargetInput:
		return findInputScript, nil
	case TargetClickable:
		return findClickableScript, nil
	default:
		return "", fmt.Errorf("unknown target kind %q", kind)
	}
}

// ParseResolveResult extracts the selector from a resolution script's result
// text. The script returns {"selector": "..."} for a match or null when no
// candidate was found.
func ParseResolveResult(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "null" || trimmed == "undefined" {
		return "", ErrTargetNotFound
	}

	var result struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return "", fmt.Errorf("unexpected resolution result: %w", err)
	}
	if result.Selector == "" {
		return "", ErrTargetNotFound
	}
	return result.Selector, nil
}

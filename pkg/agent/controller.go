// Package agent runs the plan-act-observe loop that turns a natural-language
// task into a sequence of tool calls.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/surf/pkg/agent/prompts"
	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/dispatch"
	"github.com/entrhq/surf/pkg/llm"
	"github.com/entrhq/surf/pkg/llm/tokenizer"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/toolserver"
)

const (
	// DefaultMaxIterations bounds a session's loop when the caller does not
	// override it.
	DefaultMaxIterations = 10

	// maxRepeats is how many times the identical action may execute before
	// the loop guard aborts the session. The third identical proposal is
	// never executed.
	maxRepeats = 2

	// resultTokenBudget caps the previous tool result fed back into the
	// planning prompt.
	resultTokenBudget = 4000

	// resultCharBudget is the fallback cap when no tokenizer is available.
	resultCharBudget = 16000
)

// ToolCaller is the tool execution surface the controller depends on. The
// dispatcher satisfies it.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]toolserver.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*dispatch.Result, error)
}

// Controller drives sessions through the planning loop: ask the planning
// service for the next action, execute it, feed the observation back, repeat
// until done or a stop condition fires.
type Controller struct {
	provider      llm.Provider
	tools         ToolCaller
	store         *Store
	tokenizer     *tokenizer.Tokenizer
	maxIterations int
	progress      func(Session)
	log           *logging.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMaxIterations overrides the per-session iteration budget.
func WithMaxIterations(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithTokenizer installs a tokenizer for result truncation. Without one,
// results are capped by character count instead.
func WithTokenizer(t *tokenizer.Tokenizer) ControllerOption {
	return func(c *Controller) {
		c.tokenizer = t
	}
}

// WithProgress installs a callback invoked with a session snapshot after
// every recorded step.
func WithProgress(fn func(Session)) ControllerOption {
	return func(c *Controller) {
		c.progress = fn
	}
}

// NewController creates a controller over the planning provider, the tool
// execution surface, and the session store.
func NewController(provider llm.Provider, tools ToolCaller, store *Store, opts ...ControllerOption) *Controller {
	logger, _ := logging.NewLogger("agent")
	c := &Controller{
		provider:      provider,
		tools:         tools,
		store:         store,
		maxIterations: DefaultMaxIterations,
		log:           logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the session to a terminal state. It returns the error that
// terminated the loop; a nil return means the session finished normally. The
// session record carries the same outcome either way, so background callers
// can ignore the return and poll the store.
func (c *Controller) Run(ctx context.Context, sessionID string) error {
	session, ok := c.store.Get(sessionID)
	if !ok {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	if c.provider == nil {
		c.store.fail(sessionID, "planning service not configured")
		return fmt.Errorf("planning service not configured")
	}
	c.store.setRunning(sessionID)

	catalog, err := c.tools.ListTools(ctx)
	if err != nil {
		// The planner still works without a catalog, just blind to the
		// available tools.
		c.log.Warnf("session %s: tool catalog unavailable: %v", sessionID, err)
	}

	lastResult := ""
	prevSignature := ""
	repeats := 0

	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			c.store.fail(sessionID, err.Error())
			return err
		}

		prompt := prompts.NewPromptBuilder().
			WithTask(session.Message).
			WithTools(catalog).
			WithLastResult(c.truncateResult(lastResult)).
			Build()
		messages := prompts.BuildMessages(prompts.PlannerSystemPrompt, prompt)

		reply, err := c.provider.Complete(ctx, messages)
		if err != nil {
			reason := fmt.Sprintf("planning failed: %v", err)
			c.store.fail(sessionID, reason)
			return fmt.Errorf("planning failed: %w", err)
		}

		action := ParseAction(reply.Content)
		switch action.Action {
		case ActionCallTool:
			if action.Tool == "" {
				c.store.fail(sessionID, "planned tool call named no tool")
				return fmt.Errorf("planned tool call named no tool")
			}

			signature := actionSignature(action.Tool, action.Args)
			if signature == prevSignature {
				repeats++
			} else {
				prevSignature = signature
				repeats = 0
			}
			if repeats >= maxRepeats {
				c.log.Warnf("session %s: loop detected on %s after %d repeats", sessionID, action.Tool, repeats)
				c.store.fail(sessionID, ErrLoopDetected.Error())
				return ErrLoopDetected
			}

			args := c.resolveTarget(ctx, action.Tool, action.Args)
			lastResult = c.executeStep(ctx, sessionID, iteration, action.Tool, args)

		case ActionDone, ActionRespond:
			message := action.Message
			if message == "" {
				message = strings.TrimSpace(reply.Content)
			}
			c.store.finish(sessionID, message)
			return nil

		default:
			reason := fmt.Sprintf("unrecognized action %q", action.Action)
			c.store.fail(sessionID, reason)
			return fmt.Errorf("unrecognized action %q", action.Action)
		}
	}

	c.store.fail(sessionID, ErrMaxIterations.Error())
	return ErrMaxIterations
}

// executeStep runs one tool call and records it. A failed call becomes an
// error observation for the next planning turn rather than ending the
// session; the planner is told to change course on failures.
func (c *Controller) executeStep(ctx context.Context, sessionID string, iteration int, tool string, args map[string]any) string {
	result, err := c.tools.CallTool(ctx, tool, args)
	text := ""
	switch {
	case err != nil:
		text = fmt.Sprintf("error: %v", err)
	case result.Text != "":
		text = result.Text
	case result.Data != "":
		text = fmt.Sprintf("[%s, %d bytes base64]", result.MimeType, len(result.Data))
	default:
		text = "ok"
	}

	c.store.appendStep(sessionID, Step{
		Iteration: iteration,
		Tool:      tool,
		Args:      args,
		Result:    text,
	})
	if c.progress != nil {
		if snapshot, ok := c.store.Get(sessionID); ok {
			c.progress(snapshot)
		}
	}
	return text
}

// resolveTarget turns a natural-language hint into a concrete selector for
// click/fill/type actions that carry no selector. Resolution runs a fixed
// read-only page routine through the normal dispatch path; on any failure the
// original arguments pass through untouched and the tool call itself reports
// the miss.
func (c *Controller) resolveTarget(ctx context.Context, tool string, args map[string]any) map[string]any {
	category, ok := dispatch.CategoryFor(tool)
	if !ok {
		return args
	}

	var kind browser.TargetKind
	switch category {
	case dispatch.CategoryClick:
		kind = browser.TargetClickable
	case dispatch.CategoryFill, dispatch.CategoryType:
		kind = browser.TargetInput
	default:
		return args
	}

	if hasSelector(args) {
		return args
	}
	hint := hintArg(args)
	if hint == "" {
		return args
	}

	script, err := browser.ResolveScript(kind)
	if err != nil {
		return args
	}
	result, err := c.tools.CallTool(ctx, "browser_evaluate", map[string]any{
		"code": script,
		"arg":  hint,
	})
	if err != nil {
		c.log.Warnf("target resolution for %q failed: %v", hint, err)
		return args
	}
	selector, err := browser.ParseResolveResult(result.Text)
	if err != nil {
		c.log.Warnf("target resolution for %q found nothing: %v", hint, err)
		return args
	}

	resolved := make(map[string]any, len(args)+1)
	for key, value := range args {
		resolved[key] = value
	}
	resolved["selector"] = selector
	return resolved
}

// truncateResult caps the observation fed back into the next prompt.
func (c *Controller) truncateResult(text string) string {
	if text == "" {
		return ""
	}
	if c.tokenizer != nil {
		return c.tokenizer.Truncate(text, resultTokenBudget)
	}
	if len(text) > resultCharBudget {
		return text[:resultCharBudget] + "\n[truncated]"
	}
	return text
}

// actionSignature identifies an action for loop detection. Map keys marshal
// in sorted order, so equal argument maps always produce equal signatures.
func actionSignature(tool string, args map[string]any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", args))
	}
	return tool + ":" + string(encoded)
}

// hasSelector reports whether the arguments already carry a concrete target.
func hasSelector(args map[string]any) bool {
	for _, key := range []string{"selector", "target", "element"} {
		if value, ok := args[key].(string); ok && value != "" {
			return true
		}
	}
	return false
}

// hintArg extracts the natural-language element description, if any.
func hintArg(args map[string]any) string {
	for _, key := range []string{"hint", "description", "label"} {
		if value, ok := args[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

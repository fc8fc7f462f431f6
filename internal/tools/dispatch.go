package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Decision is the policy engine's verdict for one tool call.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionDeny
	DecisionAsk
)

// PreHook may block a call or rewrite its arguments before dispatch.
// Returning allowed=false blocks; the (possibly unchanged) args are always
// used for the subsequent dispatch when allowed.
type PreHook func(ctx context.Context, name string, args map[string]interface{}) (allowed bool, newArgs map[string]interface{})

// PostHook fires after dispatch+truncation with the final args/value/elapsed time.
type PostHook func(ctx context.Context, name string, args map[string]interface{}, result *Result, elapsed time.Duration)

// DecisionFunc resolves a per-call policy decision. Implementations usually
// wrap PolicyEngine.FilterTools's allow-set plus any Ask-listed names from
// config (e.g. shell commands requiring explicit approval).
type DecisionFunc func(ctx context.Context, name string, args map[string]interface{}) (Decision, string)

// SpecialHandler is a dedicated handler for one of the reserved tool names
// (ActivateSkill, Task, TodoWrite, AskUserQuestion, EnterPlanMode, ExitPlanMode).
type SpecialHandler func(ctx context.Context, args map[string]interface{}) *Result

// MaxOutputBytes is the default truncation budget for a dispatch result's
// ForLLM payload.
const MaxOutputBytes = 32_000

// Dispatcher implements the C1 contract: execute_with_policy(ctx, name,
// args) -> (Result, ok, duration). Every step below runs in order;
// no step may abort the pipeline with a Go error — all failure modes are
// expressed as Result values.
type Dispatcher struct {
	Registry *Registry
	Decide   DecisionFunc
	PreHook  PreHook
	PostHook PostHook

	// Special dispatches by reserved tool name. Missing entries fall
	// through to the generic registry executor.
	Special map[string]SpecialHandler

	// MaxBytes overrides MaxOutputBytes when > 0.
	MaxBytes int
}

// Execute runs the full dispatch pipeline for one tool call.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]interface{}, extra ExtraContext) (result *Result, ok bool, elapsed time.Duration) {
	start := time.Now()
	defer func() { elapsed = time.Since(start) }()

	// 1. Policy decision.
	decision, _ := DecisionAllow, ""
	if d.Decide != nil {
		decision, _ = d.Decide(ctx, name, args)
	}

	// 2. Pre-hook (may block or rewrite args).
	finalArgs := args
	if d.PreHook != nil {
		allowed, newArgs := d.PreHook(ctx, name, finalArgs)
		if !allowed {
			result = ErrorResult("blocked by pre-tool hook", ErrHookBlocked)
			d.runPostHook(ctx, name, finalArgs, result, start)
			return result, result.Ok(), time.Since(start)
		}
		if newArgs != nil {
			finalArgs = newArgs
		}
	}

	// 3. Branch on policy decision.
	switch decision {
	case DecisionDeny:
		result = ErrorResult("denied by tool policy", ErrPermissionDenied)
		d.runPostHook(ctx, name, finalArgs, result, start)
		return result, result.Ok(), time.Since(start)
	case DecisionAsk:
		// The caller (worker/loop) is responsible for turning an Ask
		// decision into a yield/suspend; the dispatcher itself does not
		// block — it reports the decision via the result's ErrorCode so
		// callers that invoke Execute outside a yield-capable context
		// degrade to permission_denied instead of silently proceeding.
		result = ErrorResult("awaiting approval", ErrPermissionDenied)
		result.Silent = true
		d.runPostHook(ctx, name, finalArgs, result, start)
		return result, result.Ok(), time.Since(start)
	}

	// 4. Dispatch.
	if handler, isSpecial := d.Special[name]; isSpecial {
		result = safeInvokeSpecial(handler, ctx, finalArgs)
	} else if d.Registry != nil {
		result = d.Registry.ExecuteWithContext(ctx, name, finalArgs, extra.Channel, extra.ChatID, extra.PeerKind, extra.SessionKey, &extra)
	} else {
		result = ErrorResult("no registry configured", ErrDispatchError)
	}

	// 5. Truncation.
	d.truncate(result)

	// 6. Post-hook.
	d.runPostHook(ctx, name, finalArgs, result, start)

	return result, result.Ok(), time.Since(start)
}

func (d *Dispatcher) runPostHook(ctx context.Context, name string, args map[string]interface{}, result *Result, start time.Time) {
	if d.PostHook != nil {
		d.PostHook(ctx, name, args, result, time.Since(start))
	}
}

func (d *Dispatcher) truncate(result *Result) {
	if result == nil {
		return
	}
	max := d.MaxBytes
	if max <= 0 {
		max = MaxOutputBytes
	}
	if len(result.ForLLM) > max {
		result.ForLLM = result.ForLLM[:max] + "\n...[output truncated]"
		result.OutputTruncated = true
	}
}

// safeInvokeSpecial runs a special-case handler, converting a panic into a
// tool_error result — "any thrown error becomes Error(tool_error) ...
// dispatcher never propagates failures up the call stack."
func safeInvokeSpecial(h SpecialHandler, ctx context.Context, args map[string]interface{}) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult("tool handler panicked", ErrToolError)
		}
	}()
	res := h(ctx, args)
	if res == nil {
		return ErrorResult("handler returned no result", ErrToolError)
	}
	return res
}

// ParseToolArguments parses an LLM-supplied arguments JSON string. Invalid
// JSON is surfaced as an invalid_arguments Result rather than an error, so
// the caller can feed it back to the model instead of aborting the turn.
func ParseToolArguments(raw string) (map[string]interface{}, *Result) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, ErrorResult("invalid tool arguments: "+err.Error(), ErrInvalidArguments)
	}
	return args, nil
}

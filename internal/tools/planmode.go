package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/goclaw/internal/providers"
)

// PlanModeDenyList names tools that stay hidden from the model while a
// session is in plan mode (entered via EnterPlanMode, left via
// ExitPlanMode): anything that mutates the workspace, runs a command, or
// has a side effect outside the conversation itself. Read-only tools
// (read_file, web_search, memory_search, ...) and the plan-mode controls
// themselves stay available.
var PlanModeDenyList = []string{
	"write_file", "edit_file", "exec", "process",
	"cron", "message", "gateway", "create_image",
	"sessions_send", "sessions_spawn", "subagents",
}

// FilterPlanModeTools drops every tool definition named in PlanModeDenyList,
// used by agent.Loop while a session is in plan mode.
func FilterPlanModeTools(defs []providers.ToolDefinition) []providers.ToolDefinition {
	deny := make(map[string]bool, len(PlanModeDenyList))
	for _, n := range PlanModeDenyList {
		deny[n] = true
	}
	filtered := make([]providers.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		if !deny[d.Function.Name] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// NewEnterPlanModeHandler marks sessionKey (read from ctx via
// WithToolSessionKey) as being in plan mode. onEnter is called with the
// resolved session key so the caller (agent.Loop) can record it.
func NewEnterPlanModeHandler(onEnter func(sessionKey string)) SpecialHandler {
	return func(ctx context.Context, args map[string]interface{}) *Result {
		sessionKey := ToolSessionKeyFromCtx(ctx)
		if onEnter != nil {
			onEnter(sessionKey)
		}
		return SilentResult("Entered plan mode. Only read-only tools are available until ExitPlanMode is called.")
	}
}

// NewExitPlanModeHandler clears plan mode for the current session and
// surfaces the proposed plan to the user.
func NewExitPlanModeHandler(onExit func(sessionKey string)) SpecialHandler {
	return func(ctx context.Context, args map[string]interface{}) *Result {
		sessionKey := ToolSessionKeyFromCtx(ctx)
		if onExit != nil {
			onExit(sessionKey)
		}
		plan, _ := args["plan"].(string)
		if plan == "" {
			return SilentResult("Exited plan mode.")
		}
		return UserResult(plan)
	}
}

// NewAskUserQuestionHandler converts an AskUserQuestion tool call into a
// KindAskUser result: the dispatcher's caller (agent.Loop) is responsible
// for turning this into a turn yield instead of continuing the loop.
func NewAskUserQuestionHandler() SpecialHandler {
	return func(ctx context.Context, args map[string]interface{}) *Result {
		questions := parseQuestions(args)
		if len(questions) == 0 {
			return ErrorResult("AskUserQuestion requires at least one question", ErrInvalidArguments)
		}
		return AskUserResult(questions[0].Prompt, questions)
	}
}

func parseQuestions(args map[string]interface{}) []Question {
	raw, ok := args["questions"].([]interface{})
	if !ok {
		// Single-question shorthand: {"prompt": "...", "choices": [...]}.
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			return nil
		}
		return []Question{{ID: "q1", Prompt: prompt, Choices: toStringSlice(args["choices"])}}
	}

	questions := make([]Question, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		prompt, _ := m["prompt"].(string)
		if prompt == "" {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		questions = append(questions, Question{ID: id, Prompt: prompt, Choices: toStringSlice(m["choices"])})
	}
	return questions
}

func toStringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

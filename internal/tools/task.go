package tools

import "context"

// NewTaskHandler wraps a DelegateManager as the SpecialHandler registered
// under the reserved "Task" tool name. It is a dispatch-time special case,
// not a Registry entry — the dispatcher routes "Task" here before it ever
// reaches Registry.ExecuteWithContext.
func NewTaskHandler(dm *DelegateManager) SpecialHandler {
	return func(ctx context.Context, args map[string]interface{}) *Result {
		if dm == nil {
			return ErrorResult("delegation is not configured", ErrDispatchError)
		}

		target, _ := args["target_agent"].(string)
		if target == "" {
			target, _ = args["target_agent_key"].(string)
		}
		task, _ := args["task"].(string)
		taskCtx, _ := args["context"].(string)
		mode, _ := args["mode"].(string)
		if mode == "" {
			mode = "sync"
		}

		if target == "" {
			return ErrorResult("target_agent is required", ErrInvalidArguments)
		}
		if task == "" {
			return ErrorResult("task is required", ErrInvalidArguments)
		}

		opts := DelegateOpts{TargetAgentKey: target, Task: task, Context: taskCtx, Mode: mode}

		if mode == "async" {
			res, err := dm.DelegateAsync(ctx, opts)
			if err != nil {
				return ErrorResult(err.Error(), ErrTaskError)
			}
			return TaskResult("delegated to "+target+" (async, id="+res.DelegationID+")", nil)
		}

		res, err := dm.Delegate(ctx, opts)
		if err != nil {
			return ErrorResult(err.Error(), ErrTaskError)
		}
		return TaskResult(res.Content, &TaskStats{ToolUses: res.Iterations})
	}
}

package tools

// Stable error-code strings surfaced on Result.ErrorCode / Error events.
// These are a wire contract with the LLM and with worker/gateway clients —
// never rename an existing value.
const (
	ErrInvalidArguments = "invalid_arguments"
	ErrDoomLoopDetected = "doom_loop_detected"
	ErrHookBlocked      = "hook_blocked"
	ErrPermissionDenied = "permission_denied"
	ErrToolError        = "tool_error"
	ErrDispatchError    = "dispatch_error"
	ErrTaskError        = "task_error"
	ErrActivationFailed = "activation_failed"
	ErrMissingName      = "missing_name"
)

// Worker/server-level request errors.
const (
	ErrNoTarget           = "no_target"
	ErrNoInput            = "no_input"
	ErrMissingResumeData  = "missing_resume_data"
	ErrTurnNotFound       = "turn_not_found"
	ErrTranscriptError    = "transcript_error"
	ErrNotImplemented     = "not_implemented"
	ErrParseError         = "parse_error"
	ErrNotFound           = "not_found"
)

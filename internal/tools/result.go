package tools

import "github.com/nextlevelbuilder/goclaw/internal/providers"

// Kind tags the four cases of a dispatch result: Ok, Error, AskUser, Task.
// Go has no sum types, so the tag plus optional payload fields stand in
// for a tool call's outcome.
type Kind int

const (
	KindOk Kind = iota
	KindError
	KindAskUser
	KindTask
)

// Question is one interactive question raised by AskUserQuestion.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
}

// TaskStats carries sub-agent usage that merges into the parent turn's
// totals when a Task tool call completes.
type TaskStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	ToolUses         int `json:"tool_uses"`
}

// Result is the unified return type from tool execution. Kind distinguishes
// the four dispatch-result variants a tool call can produce; Questions and
// TaskStats are only populated for KindAskUser and KindTask respectively.
type Result struct {
	Kind Kind `json:"-"`

	ForLLM  string `json:"for_llm"`            // content sent to the LLM
	ForUser string `json:"for_user,omitempty"` // content shown to the user
	Silent  bool   `json:"silent"`             // suppress user message
	IsError bool   `json:"is_error"`           // marks error
	Async   bool   `json:"async"`              // running asynchronously
	Err     error  `json:"-"`                  // internal error (not serialized)

	// ErrorCode is one of the stable taxonomy strings (invalid_arguments,
	// doom_loop_detected, hook_blocked, permission_denied, tool_error, ...).
	ErrorCode string `json:"error_code,omitempty"`

	// OutputTruncated is set by the dispatcher's truncation step when the
	// value payload exceeded the configured byte budget.
	OutputTruncated bool `json:"output_truncated,omitempty"`

	// Questions holds the AskUserQuestion payload for KindAskUser results.
	Questions []Question `json:"questions,omitempty"`

	// TaskStats holds sub-agent usage for KindTask results.
	TaskStats *TaskStats `json:"-"`

	// Usage holds token usage from tools that make internal LLM calls (e.g. read_image).
	Usage    *providers.Usage `json:"-"`
	Provider string           `json:"-"`
	Model    string           `json:"-"`
}

func NewResult(forLLM string) *Result {
	return &Result{Kind: KindOk, ForLLM: forLLM}
}

func SilentResult(forLLM string) *Result {
	return &Result{Kind: KindOk, ForLLM: forLLM, Silent: true}
}

// ErrorResult builds the Error variant. code is optional for call sites
// that only have a message (legacy tool handlers); new dispatcher code
// should always pass one of the stable taxonomy strings.
func ErrorResult(message string, code ...string) *Result {
	r := &Result{Kind: KindError, ForLLM: message, IsError: true}
	if len(code) > 0 {
		r.ErrorCode = code[0]
	}
	return r
}

func UserResult(content string) *Result {
	return &Result{Kind: KindOk, ForLLM: content, ForUser: content}
}

func AsyncResult(message string) *Result {
	return &Result{Kind: KindOk, ForLLM: message, Async: true}
}

// AskUserResult builds the AskUser variant. The placeholder text is what
// the model sees in the transcript until the turn resumes with answers.
func AskUserResult(placeholder string, questions []Question) *Result {
	return &Result{Kind: KindAskUser, ForLLM: placeholder, Questions: questions}
}

// TaskResult builds the Task variant; stats merge into the parent turn.
func TaskResult(forLLM string, stats *TaskStats) *Result {
	return &Result{Kind: KindTask, ForLLM: forLLM, TaskStats: stats}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}

// Ok reports whether the result is not the Error variant, matching the
// dispatcher contract's `ok = !matches!(result, Error)`.
func (r *Result) Ok() bool {
	return r.Kind != KindError
}

package events

// StartPayload begins a stream.
type StartPayload struct {
	Type      string `json:"type"` // TypeStart
	MessageID string `json:"messageId"`
}

// TextPayload covers text-start/text-delta/text-end.
type TextPayload struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Delta string `json:"delta,omitempty"`
}

// ReasoningPayload covers reasoning-start/reasoning-delta/reasoning-end —
// model rationale and activity-log narration.
type ReasoningPayload struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Delta string `json:"delta,omitempty"`
}

// ToolInputStartPayload announces a tool invocation.
type ToolInputStartPayload struct {
	Type     string `json:"type"` // TypeToolInputStart
	ID       string `json:"id"`
	ToolName string `json:"toolName"`
}

// ToolInputDeltaPayload streams incremental tool-call argument text.
type ToolInputDeltaPayload struct {
	Type  string `json:"type"` // TypeToolInputDelta
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// ToolInputAvailablePayload carries the fully-assembled tool call input.
type ToolInputAvailablePayload struct {
	Type     string `json:"type"` // TypeToolInputAvailable
	ID       string `json:"id"`
	ToolName string `json:"toolName"`
	Input    string `json:"input"`
}

// ToolOutputAvailablePayload carries the result of a tool invocation.
type ToolOutputAvailablePayload struct {
	Type   string `json:"type"` // TypeToolOutputAvailable
	ID     string `json:"id"`
	Output string `json:"output"`
}

// SourceURLPayload is an evidence attachment pointing at a URL.
type SourceURLPayload struct {
	Type  string `json:"type"` // TypeSourceURL
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// SourceDocumentPayload is an evidence attachment pointing at a document.
type SourceDocumentPayload struct {
	Type      string `json:"type"` // TypeSourceDocument
	ID        string `json:"id"`
	MediaType string `json:"mediaType"`
	Title     string `json:"title,omitempty"`
}

// FilePayload is an evidence attachment carrying a file reference.
type FilePayload struct {
	Type      string `json:"type"` // TypeFile
	URL       string `json:"url"`
	MediaType string `json:"mediaType"`
}

// WorkflowStatusData is the structured payload for data-workflow-status.
type WorkflowStatusData struct {
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	StageIndex int    `json:"stage_index"`
	Status     string `json:"status"` // started, node_completed, completed, cancelled, aborted, step_limit_exceeded
}

// SupervisorReasoningData is the structured payload for data-supervisor-reasoning.
type SupervisorReasoningData struct {
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Decision  string `json:"decision"` // proceed, self_heal, human_review, finalize, abort
	Reasoning string `json:"reasoning"`
}

// HumanReviewRequiredData is the structured payload for data-human-review-required.
type HumanReviewRequiredData struct {
	RunID         string   `json:"run_id"`
	Reason        string   `json:"reason"`
	MissingObjects []string `json:"missing_objects,omitempty"`
	ResumeFrom    string   `json:"resume_from_stage"`
}

// DataPayload wraps a structured data-<name> payload.
type DataPayload struct {
	Type string `json:"type"` // "data-" + name, e.g. "data-workflow-status"
	Data any    `json:"data"`
}

// FinishPayload ends a stream; MessageMetadata is opaque caller-supplied data.
type FinishPayload struct {
	Type            string `json:"type"` // TypeFinish
	MessageMetadata any    `json:"messageMetadata,omitempty"`
}

// ErrorPayload reports a stream-ending error.
type ErrorPayload struct {
	Type      string `json:"type"` // TypeError
	ErrorText string `json:"errorText"`
}

// AbortPayload reports client-initiated or server-initiated cancellation.
type AbortPayload struct {
	Type   string `json:"type"` // TypeAbort
	Reason string `json:"reason,omitempty"`
}

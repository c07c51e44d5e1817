// Package events translates typed internal workflow/chat events into the
// uniform streaming protocol consumed by the browser: a sequence of
// `data: <json>\n\n` messages, heartbeat comment-lines, and a literal
// `data: [DONE]\n\n` trailer, matching the Vercel AI SDK UI-message-stream
// schema (`x-vercel-ai-ui-message-stream: v1`).
package events

// Event type discriminators, carried in the outgoing payload's "type" field.
const (
	TypeStart = "start"

	TypeTextStart = "text-start"
	TypeTextDelta = "text-delta"
	TypeTextEnd   = "text-end"

	TypeReasoningStart = "reasoning-start"
	TypeReasoningDelta = "reasoning-delta"
	TypeReasoningEnd   = "reasoning-end"

	TypeToolInputStart     = "tool-input-start"
	TypeToolInputDelta     = "tool-input-delta"
	TypeToolInputAvailable = "tool-input-available"
	TypeToolOutputAvailable = "tool-output-available"

	TypeSourceURL      = "source-url"
	TypeSourceDocument = "source-document"
	TypeFile           = "file"

	TypeFinish = "finish"
	TypeError  = "error"
	TypeAbort  = "abort"
)

// Structured data-<type> payload names (carried in "data-"+Name).
const (
	DataWorkflowStatus       = "workflow-status"
	DataSupervisorReasoning  = "supervisor-reasoning"
	DataHumanReviewRequired  = "human-review-required"
)

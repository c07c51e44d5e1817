// Package chatagent drives the interactive chat/agent loop: a single
// request-scoped agent that reasons over an accumulating conversation,
// decides whether to run a shell command in the migration project's PTY
// session, and streams its reasoning and results back as protocol events.
// Ported from agent_orchestrator.py's run_agent_orchestrator, replacing its
// sandboxed tool_executor with a direct PTY command execution.
package chatagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scaiflow/orchestrator/pkg/events"
	"github.com/scaiflow/orchestrator/pkg/llmclient"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
)

// maxIterations bounds the decide/act cycle, distinct from
// agent_orchestrator.py's 50-iteration cap: this system's PTY round trips
// are slower, and 15 keeps a stuck agent from burning the whole request
// budget on one chat turn.
const maxIterations = 15

// commandTimeout bounds a single run_command/run_tool PTY round trip.
const commandTimeout = 60 * time.Second

// Agent runs one chat turn's decide/act loop against an LLM and a PTY
// session registry.
type Agent struct {
	LLM  *llmclient.Client
	PTYs *ptyio.Registry
	log  *slog.Logger
}

// NewAgent builds an Agent over the given collaborators.
func NewAgent(llm *llmclient.Client, ptys *ptyio.Registry) *Agent {
	return &Agent{LLM: llm, PTYs: ptys, log: slog.With("component", "chatagent")}
}

// Run drives the loop for one chat turn and streams protocol events on the
// returned channel, which is closed when the turn ends (a text response, a
// finish/pause decision, an unresolvable PTY lookup, or iteration exhaustion).
// messages is the full prior conversation, including the user's latest turn;
// a system prompt is prepended if messages doesn't already start with one.
func (a *Agent) Run(ctx context.Context, sessionID string, messages []llmclient.Message) <-chan any {
	out := make(chan any, 64)
	go func() {
		defer close(out)
		a.run(ctx, sessionID, messages, out)
	}()
	return out
}

func (a *Agent) run(ctx context.Context, sessionID string, messages []llmclient.Message, out chan<- any) {
	msgID := uuid.New().String()
	emit := func(payload any) {
		select {
		case out <- payload:
		case <-ctx.Done():
		}
	}

	conversation := withSystemPrompt(messages)

	for iteration := 0; iteration < maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			emit(events.AbortPayload{Type: events.TypeAbort, Reason: ctx.Err().Error()})
			return
		default:
		}

		reply, err := a.complete(ctx, conversation)
		if err != nil {
			emit(events.ErrorPayload{Type: events.TypeError, ErrorText: err.Error()})
			return
		}

		decision, narration := ExtractDecisionWithNarration(reply)
		if decision == nil {
			emit(events.TextPayload{Type: events.TypeTextStart, ID: msgID})
			emit(events.TextPayload{Type: events.TypeTextDelta, ID: msgID, Delta: reply})
			emit(events.TextPayload{Type: events.TypeTextEnd, ID: msgID})
			emit(events.FinishPayload{Type: events.TypeFinish})
			return
		}

		if narration != "" && (decision.Action == ActionRunCommand || decision.Action == ActionRunTool) {
			emit(events.TextPayload{Type: events.TypeTextStart, ID: msgID})
			emit(events.TextPayload{Type: events.TypeTextDelta, ID: msgID, Delta: narration})
			emit(events.TextPayload{Type: events.TypeTextEnd, ID: msgID})
		}

		switch decision.Action {
		case ActionFinish:
			emit(events.TextPayload{Type: events.TypeTextStart, ID: msgID})
			emit(events.TextPayload{Type: events.TypeTextDelta, ID: msgID, Delta: decision.Summary})
			emit(events.TextPayload{Type: events.TypeTextEnd, ID: msgID})
			emit(events.FinishPayload{Type: events.TypeFinish})
			return
		case ActionPause:
			emit(events.TextPayload{Type: events.TypeTextStart, ID: msgID})
			emit(events.TextPayload{Type: events.TypeTextDelta, ID: msgID, Delta: decision.Guidance})
			emit(events.TextPayload{Type: events.TypeTextEnd, ID: msgID})
			emit(events.FinishPayload{Type: events.TypeFinish})
			return
		case ActionRunCommand, ActionRunTool:
			command := decision.Command
			if decision.Action == ActionRunTool {
				command = renderToolCommand(decision.Tool, decision.Args)
			}

			toolID := uuid.New().String()
			if decision.Reasoning != "" {
				emit(events.ReasoningPayload{Type: events.TypeReasoningStart, ID: toolID})
				emit(events.ReasoningPayload{Type: events.TypeReasoningDelta, ID: toolID, Delta: decision.Reasoning})
				emit(events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: toolID})
			}
			emit(events.ToolInputStartPayload{Type: events.TypeToolInputStart, ID: toolID, ToolName: decision.Action})
			emit(events.ToolInputAvailablePayload{Type: events.TypeToolInputAvailable, ID: toolID, ToolName: decision.Action, Input: command})

			session, sessErr := a.PTYs.Get(sessionID)
			if sessErr != nil {
				emit(events.ErrorPayload{Type: events.TypeError, ErrorText: fmt.Sprintf("no terminal session for this chat: %v", sessErr)})
				return
			}

			output, execErr := session.ExecuteCommand(ctx, command, commandTimeout)
			errSuffix := ""
			if execErr != nil {
				errSuffix = fmt.Sprintf(" [Error: %s]", execErr.Error())
			}
			truncated := truncateOutput(output)
			emit(events.ToolOutputAvailablePayload{Type: events.TypeToolOutputAvailable, ID: toolID, Output: truncated + errSuffix})

			conversation = append(conversation,
				llmclient.Message{Role: "assistant", Content: reply},
				llmclient.Message{Role: "user", Content: fmt.Sprintf("Command: %s\nTerminal Output: %s%s", command, truncated, errSuffix)},
			)
			continue
		default:
			emit(events.ErrorPayload{Type: events.TypeError, ErrorText: fmt.Sprintf("unrecognized action %q", decision.Action)})
			return
		}
	}

	emit(events.TextPayload{Type: events.TypeTextStart, ID: msgID})
	emit(events.TextPayload{Type: events.TypeTextDelta, ID: msgID, Delta: "Reached the maximum number of steps for this turn without finishing; please ask me to continue."})
	emit(events.TextPayload{Type: events.TypeTextEnd, ID: msgID})
	emit(events.FinishPayload{Type: events.TypeFinish})
}

// complete drives the LLM over the full conversation and accumulates its
// streamed deltas into one buffered string, matching spec's "call the LLM
// buffered" step: the response is parsed as a whole before anything is
// forwarded to the client, since a decision object can't be acted on
// mid-stream.
func (a *Agent) complete(ctx context.Context, conversation []llmclient.Message) (string, error) {
	var b strings.Builder
	for ev := range a.LLM.StreamChat(ctx, conversation) {
		switch ev.Type {
		case llmclient.EventDelta:
			b.WriteString(ev.Delta)
		case llmclient.EventError:
			return "", ev.Error
		}
	}
	return b.String(), nil
}

func withSystemPrompt(messages []llmclient.Message) []llmclient.Message {
	if len(messages) > 0 && messages[0].Role == "system" {
		return messages
	}
	out := make([]llmclient.Message, 0, len(messages)+1)
	out = append(out, llmclient.Message{Role: "system", Content: systemPrompt})
	out = append(out, messages...)
	return out
}

// renderToolCommand turns a run_tool decision's tool+args pair into a shell
// command line, since this system exposes every tool as a PTY command
// rather than through a separate tool-definitions registry.
func renderToolCommand(tool string, args map[string]any) string {
	var b strings.Builder
	b.WriteString(tool)
	for k, v := range args {
		fmt.Fprintf(&b, " --%s=%v", k, v)
	}
	return b.String()
}

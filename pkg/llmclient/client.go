// Package llmclient streams chat completions from Snowflake Cortex. It
// builds the same AI_COMPLETE/cortex.<function> SQL statements the Python
// cortex_chat_service did, executes them through an injected SQLRunner, and
// fans the response out as 80-character deltas over a channel the way the
// original's asyncio.Queue-fed worker thread did.
package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// ModelConfig names the Cortex model/function pair and decoding
// parameters for one chat session.
type ModelConfig struct {
	Model         string
	CortexFunction string
	Temperature   float64
	TopP          float64
	MaxTokens     int
}

// Message is one chat turn; Role is "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Usage reports token accounting normalized from Cortex's response envelope.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EventType discriminates StreamChat's channel events.
type EventType string

const (
	EventDelta EventType = "delta"
	EventUsage EventType = "usage"
	EventError EventType = "error"
	EventDone  EventType = "done"
)

// Event is one unit pushed onto StreamChat's output channel.
type Event struct {
	Type  EventType
	Delta string
	Usage *Usage
	Error error
}

// SQLRunner executes a single scalar-returning SQL statement against the
// target warehouse, returning the raw column value (string or already-
// decoded JSON, mirroring Session.sql(...).collect()[0][0]).
type SQLRunner interface {
	RunScalar(ctx context.Context, sql string) (any, error)
}

// Client drives chat completions for one model configuration.
type Client struct {
	runner SQLRunner
	model  ModelConfig
}

// New builds a Client. runner executes the generated SQL; model configures
// which Cortex model/function and decoding parameters to request.
func New(runner SQLRunner, model ModelConfig) *Client {
	return &Client{runner: runner, model: model}
}

// chunkSize matches _chunk_text's default 80-character delta size.
const chunkSize = 80

// StreamChat runs messages through Cortex and streams the response back as
// fixed-size text deltas followed by a usage event (if present) and a
// terminal done event, ported from stream_chat_events. The returned channel
// is always closed after a done/error event.
func (c *Client) StreamChat(ctx context.Context, messages []Message) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		text, usage, err := c.runChat(ctx, messages)
		if err != nil {
			select {
			case out <- Event{Type: EventError, Error: err}:
			case <-ctx.Done():
			}
			return
		}

		for _, delta := range chunkText(text, chunkSize) {
			select {
			case out <- Event{Type: EventDelta, Delta: delta}:
			case <-ctx.Done():
				return
			}
		}

		if usage != nil {
			select {
			case out <- Event{Type: EventUsage, Usage: usage}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case out <- Event{Type: EventDone}:
		case <-ctx.Done():
		}
	}()

	return out
}

// Complete runs a single prompt turn synchronously and returns the full
// response text, satisfying supervisor.Completer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, _, err := c.runChat(ctx, []Message{{Role: "user", Content: prompt}})
	return text, err
}

func (c *Client) runChat(ctx context.Context, messages []Message) (string, *Usage, error) {
	options := map[string]any{
		"temperature": c.model.Temperature,
		"top_p":       firstNonZero(c.model.TopP, 1.0),
		"max_tokens":  firstNonZeroInt(c.model.MaxTokens, 2048),
	}

	stmt := BuildSQLStatement(c.model.Model, c.model.CortexFunction, messages, options)

	raw, err := c.runner.RunScalar(ctx, stmt)
	if err != nil {
		return "", nil, fmt.Errorf("cortex request: %w", err)
	}
	if raw == nil {
		return "", nil, fmt.Errorf("snowflake cortex returned an empty response")
	}

	response := decodeResponse(raw)
	text := ExtractResponseText(response)
	usage := NormalizeUsage(extractUsage(response))

	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("snowflake cortex returned an empty message")
	}

	return text, usage, nil
}

func firstNonZero(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func firstNonZeroInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

// chunkText splits content into fixed-size runs, mirroring _chunk_text.
func chunkText(content string, size int) []string {
	if content == "" {
		return nil
	}
	runes := []rune(content)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

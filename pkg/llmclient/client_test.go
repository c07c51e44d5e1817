package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	raw any
	err error
	sql string
}

func (f *fakeRunner) RunScalar(ctx context.Context, sql string) (any, error) {
	f.sql = sql
	return f.raw, f.err
}

func drainEvents(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestStreamChatEmitsDeltasThenDone(t *testing.T) {
	runner := &fakeRunner{raw: `{"choices":[{"message":"hello world this is a response from cortex that is longer than eighty characters so it chunks"}]}`}
	c := New(runner, ModelConfig{Model: "claude-4-sonnet", CortexFunction: "complete"})

	events := drainEvents(c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}))

	require.NotEmpty(t, events)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, EventDelta, e.Type)
		assert.LessOrEqual(t, len([]rune(e.Delta)), 80)
	}
}

func TestStreamChatEmitsErrorOnEmptyResponse(t *testing.T) {
	runner := &fakeRunner{raw: nil}
	c := New(runner, ModelConfig{Model: "m"})

	events := drainEvents(c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestStreamChatEmitsErrorOnRunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("warehouse suspended")}
	c := New(runner, ModelConfig{Model: "m"})

	events := drainEvents(c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Error.Error(), "warehouse suspended")
}

func TestCompleteReturnsFullText(t *testing.T) {
	runner := &fakeRunner{raw: `{"content": "final answer"}`}
	c := New(runner, ModelConfig{Model: "m"})

	text, err := c.Complete(context.Background(), "what next?")

	require.NoError(t, err)
	assert.Equal(t, "final answer", text)
	assert.Contains(t, runner.sql, "AI_COMPLETE")
}

func TestCompleteUsesNonCompleteFunction(t *testing.T) {
	runner := &fakeRunner{raw: `{"content": "ok"}`}
	c := New(runner, ModelConfig{Model: "m", CortexFunction: "summarize"})

	_, err := c.Complete(context.Background(), "text to summarize")

	require.NoError(t, err)
	assert.Contains(t, runner.sql, "snowflake.cortex.summarize")
}

func TestStreamChatEmitsUsage(t *testing.T) {
	runner := &fakeRunner{raw: `{"content": "hi", "usage": {"prompt_tokens": 10, "completion_tokens": 5}}`}
	c := New(runner, ModelConfig{Model: "m"})

	events := drainEvents(c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}))

	var sawUsage bool
	for _, e := range events {
		if e.Type == EventUsage {
			sawUsage = true
			require.NotNil(t, e.Usage)
			assert.Equal(t, 10, e.Usage.PromptTokens)
			assert.Equal(t, 5, e.Usage.CompletionTokens)
		}
	}
	assert.True(t, sawUsage)
}

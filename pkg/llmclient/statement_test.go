package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptGroupsSystemFirst(t *testing.T) {
	prompt := BuildPrompt([]Message{
		{Role: "system", Content: "Be concise."},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
	})

	assert.Contains(t, prompt, "System: Be concise.")
	assert.Contains(t, prompt, "User: Hello")
	assert.Contains(t, prompt, "Assistant: Hi there")
	assert.True(t, len(prompt) > 0 && prompt[len(prompt)-10:] == "Assistant:")
}

func TestBuildPromptSkipsEmptyMessages(t *testing.T) {
	prompt := BuildPrompt([]Message{{Role: "user", Content: "   "}})
	assert.Equal(t, "Assistant:", prompt)
}

func TestBuildSQLStatementCompleteFunctionEscapesDollarQuote(t *testing.T) {
	messages := []Message{{Role: "user", Content: "price is $$100$$"}}
	stmt := BuildSQLStatement("claude-4-sonnet", "complete", messages, map[string]any{"temperature": 0.2})

	assert.Contains(t, stmt, "AI_COMPLETE")
	assert.Contains(t, stmt, "$ $100$ $")
	assert.NotContains(t, stmt, "$$100$$")
}

func TestBuildSQLStatementEscapesModelQuote(t *testing.T) {
	stmt := BuildSQLStatement("o'reilly-model", "complete", nil, nil)
	assert.Contains(t, stmt, "o''reilly-model")
}

func TestBuildSQLStatementGenericFunctionUsesJSONPayload(t *testing.T) {
	messages := []Message{{Role: "user", Content: "hello"}}
	stmt := BuildSQLStatement("m", "embed_text", messages, map[string]any{})

	assert.Contains(t, stmt, "snowflake.cortex.embed_text")
	assert.Contains(t, stmt, `"role":"user"`)
}

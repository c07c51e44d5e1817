package llmclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt assembles a single text prompt from a chat history, grouping
// system messages first and always ending with an "Assistant:" cue.
// Ported from _build_prompt.
func BuildPrompt(messages []Message) string {
	var systemChunks, dialogChunks []string

	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if m.Role == "system" {
			systemChunks = append(systemChunks, content)
			continue
		}
		roleLabel := "User"
		if m.Role == "assistant" {
			roleLabel = "Assistant"
		}
		dialogChunks = append(dialogChunks, roleLabel+": "+content)
	}

	var parts []string
	if len(systemChunks) > 0 {
		parts = append(parts, "System: "+strings.Join(systemChunks, "\n"))
	}
	parts = append(parts, dialogChunks...)
	parts = append(parts, "Assistant:")

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// BuildSQLStatement builds the Cortex SQL statement for one chat turn: an
// AI_COMPLETE call for the "complete"/"ai_complete" function family, or a
// generic snowflake.cortex.<function> call for anything else. Ported from
// _build_sql_statement.
func BuildSQLStatement(model, cortexFunction string, messages []Message, options map[string]any) string {
	functionName := cortexFunction
	if functionName == "" {
		functionName = "complete"
	}
	normalized := strings.ToLower(strings.TrimSpace(functionName))

	if normalized == "complete" || normalized == "ai_complete" || strings.HasPrefix(normalized, "complete$") {
		prompt := BuildPrompt(messages)
		// Guard against $$ delimiter collisions in the dollar-quoted prompt.
		prompt = strings.ReplaceAll(prompt, "$$", "$ $")
		modelLiteral := strings.ReplaceAll(model, "'", "''")

		var params []string
		if temp, ok := options["temperature"].(float64); ok {
			params = append(params, fmt.Sprintf("'temperature': %v", temp))
		}
		if topP, ok := options["top_p"].(float64); ok {
			params = append(params, fmt.Sprintf("'top_p': %v", topP))
		}
		if maxTokens, ok := options["max_tokens"].(int); ok {
			params = append(params, fmt.Sprintf("'max_tokens': %d", maxTokens))
		}
		modelParamsLiteral := "{ }"
		if len(params) > 0 {
			modelParamsLiteral = "{ " + strings.Join(params, ", ") + " }"
		}

		return fmt.Sprintf(
			"select AI_COMPLETE(model => '%s', prompt => $$%s$$, model_parameters => %s, show_details => true) as llm_response;",
			modelLiteral, prompt, modelParamsLiteral,
		)
	}

	type messageDict struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	dicts := make([]messageDict, len(messages))
	for i, m := range messages {
		dicts[i] = messageDict{Role: m.Role, Content: m.Content}
	}
	payload, _ := json.Marshal(dicts)
	optionsJSON, _ := json.Marshal(options)

	return fmt.Sprintf(
		"select snowflake.cortex.%s('%s', parse_json($$%s$$), parse_json($$%s$$)) as llm_response;",
		functionName, model, string(payload), string(optionsJSON),
	)
}

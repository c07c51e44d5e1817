package llmclient

import "encoding/json"

// decodeResponse accepts either an already-decoded JSON value or a raw JSON
// string (the two shapes Session.sql(...).collect()[0][0] can return) and
// normalizes to a Go value (map[string]any, []any, or string).
func decodeResponse(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return decoded
}

// ExtractResponseText digs the assistant text out of a Cortex response
// envelope, trying the OpenAI-style choices[0].{message,delta,content,text}
// shape first, then top-level message/content/text, then falls back to
// coercing the whole value to a string. Ported from _extract_response_text.
func ExtractResponseText(response any) string {
	obj, ok := response.(map[string]any)
	if ok {
		if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				for _, key := range []string{"message", "messages", "delta", "content", "text"} {
					if v, exists := choice[key]; exists {
						return coerceText(v)
					}
				}
			}
		}
		for _, key := range []string{"message", "content", "text"} {
			if v, exists := obj[key]; exists {
				return coerceText(v)
			}
		}
	}
	return coerceText(response)
}

// coerceText flattens a string, list of strings/{"text":...} dicts, or dict
// with a "content"/"text" field into a single string. Ported from
// _coerce_text.
func coerceText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		var out string
		for _, item := range v {
			switch it := item.(type) {
			case string:
				out += it
			case map[string]any:
				if text, ok := it["text"].(string); ok {
					out += text
				}
			}
		}
		return out
	case map[string]any:
		if content, ok := v["content"].(string); ok {
			return content
		}
		if text, ok := v["text"].(string); ok {
			return text
		}
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return ""
	case nil:
		return ""
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return ""
	}
}

func extractUsage(response any) map[string]any {
	obj, ok := response.(map[string]any)
	if !ok {
		return nil
	}
	usage, _ := obj["usage"].(map[string]any)
	return usage
}

// NormalizeUsage converts a raw usage dict (which may spell prompt/input
// and completion/output tokens either way) into a Usage, or nil if no
// recognizable field is present. Ported from _normalize_usage.
func NormalizeUsage(usage map[string]any) *Usage {
	if usage == nil {
		return nil
	}

	result := &Usage{}
	found := false

	if v := firstInt(usage, "prompt_tokens", "input_tokens"); v != nil {
		result.PromptTokens = *v
		found = true
	}
	if v := firstInt(usage, "completion_tokens", "output_tokens"); v != nil {
		result.CompletionTokens = *v
		found = true
	}
	if v := firstInt(usage, "total_tokens"); v != nil {
		result.TotalTokens = *v
		found = true
	}

	if !found {
		return nil
	}
	return result
}

func firstInt(m map[string]any, keys ...string) *int {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch n := v.(type) {
			case int:
				return &n
			case float64:
				i := int(n)
				return &i
			}
		}
	}
	return nil
}

package migration

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Completer is the narrow LLM surface self-heal needs: a single
// prompt-in/text-out call, satisfied by llmclient.Client.Complete.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMHealer repairs converted SQL by handing the failing code and its
// issues to an LLM and asking for a corrected version, grounded on
// core.integrations.apply_self_healing (the Python implementation itself
// was a stub in the retrieved source, so the prompt shape follows the
// supervisor and report-memory issue formatting already established
// elsewhere in this package).
type LLMHealer struct {
	LLM Completer
}

// NewLLMHealer builds a Healer backed by the given Completer.
func NewLLMHealer(llm Completer) *LLMHealer {
	return &LLMHealer{LLM: llm}
}

func (h *LLMHealer) Heal(code string, issues []Issue, iteration int, statementType string, logCallback func(string)) (HealResult, error) {
	now := time.Now()
	if h.LLM == nil {
		return HealResult{Success: false, ErrorMessage: "no LLM configured for self-heal", Timestamp: now}, nil
	}
	if len(issues) == 0 {
		if logCallback != nil {
			logCallback("no issues to fix")
		}
		return HealResult{Success: true, FixedCode: code, FixesApplied: 0, IssuesFixed: 0, Timestamp: now}, nil
	}

	prompt := buildHealPrompt(code, issues, iteration, statementType)
	response, err := h.LLM.Complete(context.Background(), prompt)
	if err != nil {
		return HealResult{}, fmt.Errorf("self-heal completion failed: %w", err)
	}

	fixed := stripFence(response)
	if strings.TrimSpace(fixed) == "" {
		return HealResult{Success: false, ErrorMessage: "LLM returned no repaired code", Timestamp: now}, nil
	}

	return HealResult{
		Success:      true,
		FixedCode:    fixed,
		FixesApplied: len(issues),
		IssuesFixed:  len(issues),
		Timestamp:    now,
	}, nil
}

func buildHealPrompt(code string, issues []Issue, iteration int, statementType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are fixing %s SQL that failed conversion validation or execution.\n", statementType)
	fmt.Fprintf(&b, "This is self-heal attempt %d.\n\n", iteration)
	b.WriteString("Issues to fix:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- [%s/%s] %s", issue.Severity, issue.Type, issue.Message)
		if issue.Code != "" {
			fmt.Fprintf(&b, " (code: %s)", issue.Code)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent code:\n```sql\n")
	b.WriteString(code)
	b.WriteString("\n```\n\n")
	b.WriteString("Return only the corrected SQL, with no explanation and no markdown fence.")
	return b.String()
}

// stripFence removes a surrounding ```sql ... ``` or ``` ... ``` fence if
// present, mirroring the markdown-fence tolerance used elsewhere for LLM
// responses (see supervisor.stripMarkdownFence).
func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(trimmed[:nl])
		if firstLine == "" || !strings.Contains(firstLine, " ") {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

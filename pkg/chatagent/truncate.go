package chatagent

import "fmt"

// Terminal output truncation thresholds for command results folded back into
// the accumulated conversation. Distinct from agent_orchestrator.py's
// stdout/stderr thresholds (2000/1000/500 and 1000/500/250), which apply to
// that code path's separate tool-trace replay, not this one.
const (
	truncateThreshold = 3000
	truncateHead      = 1500
	truncateTail      = 750
)

// truncateOutput keeps the head and tail of a long command output and elides
// the middle, so a single verbose command can't blow the conversation's
// token budget.
func truncateOutput(s string) string {
	if len(s) <= truncateThreshold {
		return s
	}
	return fmt.Sprintf("%s…(truncated)…%s", s[:truncateHead], s[len(s)-truncateTail:])
}

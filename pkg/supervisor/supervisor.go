// Package supervisor implements the LLM Supervisor: the agentic brain that
// runs after every migration stage node, evaluates the workflow state, and
// decides whether to proceed, self-heal, pause for human review, finalize
// early, or abort. Ported from graph/nodes/supervisor.py.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scaiflow/orchestrator/pkg/migration"
)

// Decision is one of the LLM Supervisor's routing outcomes.
type Decision string

const (
	DecisionProceed     Decision = "proceed"
	DecisionSelfHeal    Decision = "self_heal"
	DecisionHumanReview Decision = "human_review"
	DecisionFinalize    Decision = "finalize"
	DecisionAbort       Decision = "abort"
)

// naturalNext maps a completed stage to its default "proceed" target.
var naturalNext = map[migration.Stage]migration.Stage{
	migration.StageInitProject:        migration.StageAddSourceCode,
	migration.StageAddSourceCode:      migration.StageApplySchemaMapping,
	migration.StageApplySchemaMapping: migration.StageConvertCode,
	migration.StageConvertCode:        migration.StageExecuteSQL,
	migration.StageExecuteSQL:         migration.StageValidate,
	migration.StageSelfHeal:           migration.StageValidate,
	migration.StageValidate:           migration.StageFinalize,
	migration.StageHumanReview:        migration.StageExecuteSQL,
	migration.StageFinalize:           "__end__",
}

// allowedDecisions maps a completed stage to the decisions the LLM is
// permitted to choose between.
var allowedDecisions = map[migration.Stage][]Decision{
	migration.StageInitProject:        {DecisionProceed, DecisionAbort},
	migration.StageAddSourceCode:      {DecisionProceed, DecisionAbort},
	migration.StageApplySchemaMapping: {DecisionProceed, DecisionAbort},
	migration.StageConvertCode:        {DecisionProceed, DecisionAbort},
	migration.StageExecuteSQL:         {DecisionProceed, DecisionSelfHeal, DecisionHumanReview, DecisionFinalize, DecisionAbort},
	migration.StageSelfHeal:           {DecisionProceed, DecisionSelfHeal, DecisionFinalize, DecisionAbort},
	migration.StageValidate:           {DecisionProceed, DecisionSelfHeal, DecisionFinalize, DecisionAbort},
	migration.StageHumanReview:        {DecisionProceed, DecisionAbort},
	migration.StageFinalize:           {DecisionProceed},
}

func allowedFor(stage migration.Stage) []Decision {
	if d, ok := allowedDecisions[stage]; ok {
		return d
	}
	return []Decision{DecisionProceed, DecisionAbort}
}

func naturalNextFor(stage migration.Stage) migration.Stage {
	if next, ok := naturalNext[stage]; ok {
		return next
	}
	return migration.StageFinalize
}

// Completer invokes the LLM with a single prompt and returns its raw text
// response, implemented by pkg/llmclient against Snowflake Cortex.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DecisionRecord is one entry in the Supervisor's decision history — kept
// here rather than on migration.Context since decision tracking is the
// supervisor's concern, not a stage node's.
type DecisionRecord struct {
	Timestamp  time.Time        `json:"timestamp"`
	AfterStage migration.Stage  `json:"after_stage"`
	Decision   Decision         `json:"decision"`
	Reasoning  string           `json:"reasoning"`
}

// Supervisor evaluates migration state and routes the workflow.
type Supervisor struct {
	llm             Completer
	decisionHistory []DecisionRecord
}

// New builds a Supervisor backed by llm. A nil llm always falls back to the
// deterministic routing table (used in tests and when no model is
// configured).
func New(llm Completer) *Supervisor {
	return &Supervisor{llm: llm}
}

// DecisionHistory returns every decision made so far, oldest first.
func (s *Supervisor) DecisionHistory() []DecisionRecord {
	return s.decisionHistory
}

// Evaluate decides the next action after c's current stage completed.
// Ported from supervisor_node.
func (s *Supervisor) Evaluate(ctx context.Context, c *migration.Context, pty migration.PTYWriter) (Decision, string) {
	stage := c.CurrentStage
	allowed := allowedFor(stage)

	if stage == migration.StageError || stage == migration.StageCompleted {
		decision := DecisionProceed
		if stage == migration.StageError {
			decision = DecisionFinalize
		}
		reasoning := fmt.Sprintf("Stage is %s, auto-routing.", stage)
		migration.LogEvent(c, "info", "[Supervisor] Auto-routing: "+string(decision), nil)
		return decision, reasoning
	}

	if stage == migration.StageHumanReview && c.RequiresHumanIntervention {
		migration.LogEvent(c, "info", "[Supervisor] Human review required, pausing.", nil)
		return DecisionHumanReview, "Human intervention is required. Pausing workflow."
	}

	migration.LogEvent(c, "info", "[Supervisor] Evaluating after: "+string(stage), nil)
	migration.PTYEcho(pty, fmt.Sprintf("Supervisor evaluating after: %s...", stage))

	decision, reasoning := s.decide(ctx, c, allowed)

	c.SupervisorDecision = string(decision)
	c.SupervisorReasoning = reasoning
	c.Touch(time.Now())

	migration.LogEvent(c, "info", "[Supervisor] Decision: "+string(decision), map[string]any{"reasoning": reasoning})
	migration.PTYEcho(pty, fmt.Sprintf("Supervisor -> %s: %s", decision, truncate(reasoning, 120)))

	s.decisionHistory = append(s.decisionHistory, DecisionRecord{
		Timestamp: time.Now(), AfterStage: stage, Decision: decision, Reasoning: reasoning,
	})

	return decision, reasoning
}

func (s *Supervisor) decide(ctx context.Context, c *migration.Context, allowed []Decision) (Decision, string) {
	if s.llm == nil {
		return deterministicFallback(c, allowed)
	}

	prompt := buildPrompt(c, allowed)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		decision, reasoning := deterministicFallback(c, allowed)
		return decision, fmt.Sprintf("(LLM unavailable: %v) %s", err, reasoning)
	}

	return parseResponse(raw, allowed)
}

// NaturalNext exposes the proceed-target table for the workflow runner.
func NaturalNext(stage migration.Stage) migration.Stage {
	return naturalNextFor(stage)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// decisionResponse is the JSON shape the LLM is asked to emit.
type decisionResponse struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

func parseResponse(raw string, allowed []Decision) (Decision, string) {
	text := strings.TrimSpace(raw)
	text = stripMarkdownFence(text)

	var parsed decisionResponse
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		decision := Decision(strings.ToLower(strings.TrimSpace(parsed.Decision)))
		if decision == "" {
			decision = DecisionProceed
		}
		if !isAllowed(decision, allowed) {
			decision = DecisionProceed
		}
		return decision, strings.TrimSpace(parsed.Reasoning)
	}

	lowered := strings.ToLower(text)
	for _, option := range allowed {
		if strings.Contains(lowered, string(option)) {
			return option, "(Parsed from text) " + truncate(text, 200)
		}
	}
	return DecisionProceed, "(Parse failed, defaulting to proceed) " + truncate(text, 200)
}

// stripMarkdownFence removes a ```...``` wrapper if present, the way
// _parse_supervisor_response does before attempting JSON decode.
func stripMarkdownFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	last := len(lines) - 1
	if strings.HasPrefix(lines[last], "```") {
		lines = lines[1:last]
	} else {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isAllowed(d Decision, allowed []Decision) bool {
	for _, a := range allowed {
		if a == d {
			return true
		}
	}
	return false
}

func buildPrompt(c *migration.Context, allowed []Decision) string {
	stage := c.CurrentStage
	natural := naturalNextFor(stage)
	summary := buildStateSummary(c)

	allowedJSON, _ := json.Marshal(allowed)

	return fmt.Sprintf(`You are a Snowflake migration workflow orchestrator. You evaluate the result of each workflow step and decide the next action.

CURRENT STATE:
%s

LAST COMPLETED STEP: %s

ALLOWED DECISIONS: %s
- "proceed": Continue to the natural next step (%s)
- "self_heal": Route to LLM-based code repair (only if execution/validation failed)
- "human_review": Pause workflow for user intervention (e.g., missing DDL objects)
- "finalize": Skip remaining steps and finalize with current results
- "abort": Stop workflow due to unrecoverable error

RULES:
1. If the current step completed successfully with no errors, decide "proceed".
2. If execution failed due to a missing object (table/schema not found), decide "human_review".
3. If execution failed due to a syntax or logic error, decide "self_heal" (unless max iterations reached).
4. If validation failed and self-heal budget remains, decide "self_heal".
5. If validation failed and self-heal budget is exhausted, decide "finalize".
6. If there are critical unrecoverable errors, decide "abort".
7. Always explain your reasoning briefly.

Respond with ONLY a JSON object, no markdown fences:
{"decision": "<one of %s>", "reasoning": "<brief explanation>"}`, summary, stage, allowedJSON, natural, allowedJSON)
}

func buildStateSummary(c *migration.Context) string {
	var lines []string
	lines = append(lines, "Project: "+c.ProjectName)
	lines = append(lines, "Current stage: "+string(c.CurrentStage))
	lines = append(lines, fmt.Sprintf("Source language: %s -> %s", c.SourceLanguage, c.TargetPlatform))

	if c.ScaiProjectInitialized {
		lines = append(lines, "[x] Project initialized")
	}
	if c.ScaiSourceAdded {
		lines = append(lines, fmt.Sprintf("[x] Source code added (%d files)", len(c.SourceFiles)))
	}
	if c.ScaiConverted {
		lines = append(lines, fmt.Sprintf("[x] Code converted (%d output files)", len(c.ConvertedFiles)))
	}

	if c.ExecutionPassed {
		lines = append(lines, "[x] SQL execution passed")
	} else if len(c.ExecutionErrors) > 0 {
		last := c.ExecutionErrors[len(c.ExecutionErrors)-1]
		lines = append(lines, fmt.Sprintf("[ ] SQL execution failed: %s - %s", last.Type, truncate(last.Message, 200)))
		if len(c.MissingObjects) > 0 {
			lines = append(lines, "  Missing objects: "+strings.Join(c.MissingObjects, ", "))
		}
	}

	if c.SelfHealIteration > 0 {
		lines = append(lines, fmt.Sprintf("Self-heal iterations: %d/%d", c.SelfHealIteration, c.MaxSelfHealIterations))
		if len(c.SelfHealLog) > 0 {
			last := c.SelfHealLog[len(c.SelfHealLog)-1]
			status := "failed"
			if last.Success {
				status = "success"
			}
			lines = append(lines, "  Last heal: "+status)
		}
	}

	if c.ValidationPassed {
		lines = append(lines, "[x] Validation passed")
	} else if len(c.ValidationIssues) > 0 {
		lines = append(lines, fmt.Sprintf("[ ] Validation failed: %d issues", len(c.ValidationIssues)))
		for i, issue := range c.ValidationIssues {
			if i >= 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("  - [%s] %s", issue.Severity, truncate(issue.Message, 100)))
		}
	}

	if len(c.Errors) > 0 {
		lines = append(lines, fmt.Sprintf("Errors (%d):", len(c.Errors)))
		start := 0
		if len(c.Errors) > 3 {
			start = len(c.Errors) - 3
		}
		for _, e := range c.Errors[start:] {
			lines = append(lines, "  - "+truncate(e, 150))
		}
	}

	if len(c.Warnings) > 0 {
		lines = append(lines, fmt.Sprintf("Warnings: %d total", len(c.Warnings)))
	}

	if c.ReportScanSummary != nil {
		actionable, _ := c.ReportScanSummary["actionable_issues"].(int)
		ignored, _ := c.ReportScanSummary["ignored_issues"].(int)
		lines = append(lines, fmt.Sprintf("SnowConvert report: %d actionable issues, %d ignored", actionable, ignored))
	}

	return strings.Join(lines, "\n")
}

// deterministicFallback routes the workflow when the LLM is unavailable,
// using the same logic as the original conditional graph edges. Ported
// from _deterministic_fallback.
func deterministicFallback(c *migration.Context, allowed []Decision) (Decision, string) {
	stage := c.CurrentStage

	if stage == migration.StageError {
		return DecisionFinalize, "Error state detected, finalizing."
	}

	switch stage {
	case migration.StageExecuteSQL:
		if c.ExecutionPassed {
			return DecisionProceed, "Execution passed, proceeding to validation."
		}
		if len(c.MissingObjects) > 0 && isAllowed(DecisionHumanReview, allowed) {
			return DecisionHumanReview, "Missing objects: " + strings.Join(c.MissingObjects, ", ")
		}
		if isAllowed(DecisionSelfHeal, allowed) {
			return DecisionSelfHeal, "Execution failed, attempting self-heal."
		}
		return DecisionFinalize, "Execution failed, no recovery options."

	case migration.StageValidate:
		if c.ValidationPassed {
			return DecisionProceed, "Validation passed."
		}
		if c.SelfHealIteration < c.MaxSelfHealIterations && isAllowed(DecisionSelfHeal, allowed) {
			return DecisionSelfHeal, fmt.Sprintf("Validation failed, self-heal iteration %d.", c.SelfHealIteration+1)
		}
		return DecisionFinalize, "Validation failed, max retries reached."

	case migration.StageSelfHeal:
		return DecisionProceed, "Self-heal complete, proceeding to validation."
	}

	return DecisionProceed, fmt.Sprintf("Step %s completed, proceeding.", stage)
}

package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealResult is the outcome of one self-heal attempt over a code blob.
type HealResult struct {
	Success      bool
	FixedCode    string
	FixesApplied int
	IssuesFixed  int
	ErrorMessage string
	Timestamp    time.Time
}

// Healer repairs converted code against a set of validation/execution
// issues using an LLM, grounded on core.integrations.apply_self_healing.
type Healer interface {
	Heal(code string, issues []Issue, iteration int, statementType string, logCallback func(string)) (HealResult, error)
}

// SelfHeal attempts to repair converted code using healer, persisting fixed
// code back to the converted files on disk and tracking iteration history.
// Ported from self_heal_node.
func SelfHeal(c *Context, healer Healer, buildReportContext ReportContextBuilder, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	c.SelfHealIteration++
	c.CurrentStage = StageSelfHeal
	LogEvent(c, "info", fmt.Sprintf("Self-healing iteration %d", c.SelfHealIteration), nil)
	PTYEcho(pty, fmt.Sprintf("$ Self-healing iteration %d...", c.SelfHealIteration))

	if buildReportContext != nil {
		applyReportContext(c, buildReportContext(c))
	}

	if c.ConvertedCode == "" {
		msg := "No code available for self-healing"
		c.Warnings = append(c.Warnings, msg)
		c.Touch(time.Now())
		LogEvent(c, "warning", msg, nil)
		return c
	}

	logCallback := func(msg string) {
		c.Warnings = append(c.Warnings, fmt.Sprintf("[Self-Heal Iter %d] %s", c.SelfHealIteration, msg))
		LogEvent(c, "info", "Self-healing: "+msg, nil)
	}

	heal, err := healer.Heal(c.ConvertedCode, c.ValidationIssues, c.SelfHealIteration, c.StatementType, logCallback)
	if err != nil {
		heal = HealResult{Success: false, ErrorMessage: err.Error(), Timestamp: time.Now()}
	}
	logCallback(formatSelfHealReport(heal))

	if heal.Success {
		c.ConvertedCode = heal.FixedCode

		for _, msg := range persistHealedFiles(c.ConvertedFiles, heal.FixedCode) {
			c.Warnings = append(c.Warnings, msg)
			LogEvent(c, "warning", msg, nil)
		}

		if heal.IssuesFixed == 0 || c.SelfHealIteration >= c.MaxSelfHealIterations {
			c.FinalCode = heal.FixedCode
		}

		c.SelfHealLog = append(c.SelfHealLog, SelfHealLogEntry{
			Iteration: c.SelfHealIteration, Timestamp: heal.Timestamp, Success: true,
			FixesApplied: heal.FixesApplied, IssuesFixed: heal.IssuesFixed, LLMProvider: "snowflake_cortex",
		})
		LogEvent(c, "info", fmt.Sprintf("Self-healing iteration %d completed successfully", c.SelfHealIteration), nil)
		PTYEcho(pty, fmt.Sprintf("[OK] Self-healing iteration %d done", c.SelfHealIteration))
	} else {
		errMsg := heal.ErrorMessage
		if errMsg == "" {
			errMsg = "Self-healing failed"
		}
		c.Errors = append(c.Errors, fmt.Sprintf("[Self-Heal Iter %d] %s", c.SelfHealIteration, errMsg))
		LogEvent(c, "error", "Self-heal failed: "+errMsg, nil)

		c.SelfHealLog = append(c.SelfHealLog, SelfHealLogEntry{
			Iteration: c.SelfHealIteration, Timestamp: heal.Timestamp, Success: false,
			Error: heal.ErrorMessage, LLMProvider: "snowflake_cortex",
		})
		PTYEcho(pty, "[WARN] Self-healing failed: "+errMsg)
	}

	c.Touch(time.Now())
	return c
}

// persistHealedFiles writes fixedCode to every path in files concurrently
// (a self-heal pass can touch several converted files per statement) and
// returns a warning message per file that failed to persist, in no
// particular order.
func persistHealedFiles(files []string, fixedCode string) []string {
	var (
		mu       sync.Mutex
		warnings []string
		g        errgroup.Group
	)

	for _, filePath := range files {
		filePath := filePath
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("Failed to persist healed code to %s: %v", filePath, err))
				mu.Unlock()
				return nil
			}
			if err := os.WriteFile(filePath, []byte(fixedCode), 0o644); err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("Failed to persist healed code to %s: %v", filePath, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return warnings
}

func formatSelfHealReport(h HealResult) string {
	if h.Success {
		return fmt.Sprintf("self-heal: %d fixes applied, %d issues resolved", h.FixesApplied, h.IssuesFixed)
	}
	return "self-heal failed: " + h.ErrorMessage
}

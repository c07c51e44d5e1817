package migration

import (
	"fmt"
	"time"
)

// ValidationResult is the outcome of validating converted code, ported from
// the ValidationResult dataclass consumed by validate_node.
type ValidationResult struct {
	Passed  bool
	Issues  []Issue
	Results map[string]any
}

// Validator checks converted code for regressions against the original,
// grounded on core.integrations.validate_code (a line-count regression
// check in the original implementation).
type Validator interface {
	Validate(code, originalCode string, logCallback func(string)) (ValidationResult, error)
}

// Validate runs validator against the current converted code. On success it
// promotes the code to FinalCode. Ported from validate_node.
func Validate(c *Context, validator Validator, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	c.CurrentStage = StageValidate
	c.ValidationIssues = nil
	LogEvent(c, "info", "Validating converted code for project: "+c.ProjectName, nil)
	PTYEcho(pty, "$ Validating converted code...")

	if c.ConvertedCode == "" {
		msg := "No code available for validation"
		c.Warnings = append(c.Warnings, msg)
		c.ValidationPassed = false
		c.ValidationIssues = append(c.ValidationIssues, Issue{Type: "validation_error", Severity: "error", Message: msg})
		c.Touch(time.Now())
		LogEvent(c, "warning", msg, nil)
		return c
	}

	logCallback := func(msg string) {
		c.Warnings = append(c.Warnings, "[Validation] "+msg)
		LogEvent(c, "info", "Validation: "+msg, nil)
	}

	result, err := validator.Validate(c.ConvertedCode, c.OriginalCode, logCallback)
	if err != nil {
		return failValidate(c, "Exception during validation: "+err.Error())
	}
	logCallback(formatValidationReport(result))

	c.ValidationPassed = result.Passed
	c.ValidationIssues = result.Issues
	c.ValidationResultsJSON = result.Results

	if result.Passed {
		c.FinalCode = c.ConvertedCode
		LogEvent(c, "info", "Validation passed", nil)
		PTYEcho(pty, "[OK] Validation passed")
	} else {
		LogEvent(c, "warning", fmt.Sprintf("Validation failed with %d issues", len(result.Issues)), nil)
		PTYEcho(pty, fmt.Sprintf("[WARN] Validation failed: %d issues", len(result.Issues)))
	}

	c.Touch(time.Now())
	return c
}

func failValidate(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.CurrentStage = StageError
	c.ValidationPassed = false
	c.ValidationIssues = append(c.ValidationIssues, Issue{Type: "validation_error", Severity: "error", Message: msg})
	LogEvent(c, "error", msg, nil)
	return c
}

func formatValidationReport(r ValidationResult) string {
	if r.Passed {
		return "validation passed"
	}
	return fmt.Sprintf("validation failed: %d issues", len(r.Issues))
}

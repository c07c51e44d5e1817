package migration

import (
	"context"
	"path/filepath"
	"time"
)

// convertCodeTimeout is generous for large codebases, matching
// convert_code.py's explicit 3600s override of the 1800s default.
const convertCodeTimeout = 3600 * time.Second

// ConvertCode runs `scai code convert`, then reads the converted files and
// refreshes the report-context memory consumed by self-heal. Ported from
// convert_code_node. buildReportContext is nil-safe: when omitted, report
// context fields are left untouched (self_heal rebuilds them anyway).
func ConvertCode(ctx context.Context, c *Context, runner CLIRunner, pty PTYWriter, buildReportContext ReportContextBuilder) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Converting code for project: "+c.ProjectName, nil)

	result, err := runWithEcho(ctx, runner, pty, []string{"code", "convert"}, c.ProjectPath, convertCodeTimeout)
	if err != nil {
		return failConvertCode(c, "Exception during code conversion: "+err.Error())
	}

	if result.Stdout != "" {
		LogEvent(c, "info", "scai code convert output", map[string]any{"stdout": result.Stdout})
	}
	if result.Stderr != "" {
		LogEvent(c, "warning", "scai code convert stderr", map[string]any{"stderr": result.Stderr})
	}

	if result.ExitCode != 0 {
		detail := firstNonEmpty(result.Stderr, result.Stdout, "Unknown error")
		c.Errors = append(c.Errors, "Failed to convert code: "+detail)
		c.ScaiConverted = false
		c.CurrentStage = StageError
		LogEvent(c, "error", "Failed to convert code: "+detail, nil)
		return c
	}

	c.ScaiConverted = true
	c.CurrentStage = StageConvertCode
	c.Touch(time.Now())
	LogEvent(c, "info", "Code conversion completed successfully", nil)

	convertedDir := filepath.Join(c.ProjectPath, "converted")
	c.ConvertedFiles = ListSQLFiles(convertedDir)
	c.ConvertedCode = ReadSQLFiles(convertedDir)

	if c.ConvertedCode == "" {
		fallback := c.SchemaMappedCode
		if fallback == "" {
			fallback = c.OriginalCode
		}
		c.ConvertedCode = fallback
		if fallback != "" {
			warning := "Converted output files not found; using in-memory SQL content."
			c.Warnings = append(c.Warnings, warning)
			LogEvent(c, "warning", warning, nil)
		}
	}

	if buildReportContext != nil {
		applyReportContext(c, buildReportContext(c))
	}

	return c
}

func failConvertCode(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.ScaiConverted = false
	c.CurrentStage = StageError
	LogEvent(c, "error", msg, nil)
	return c
}

// ReportContextBuilder refreshes the SnowConvert report-scan memory
// consumed by the self-heal node, grounded on build_report_context_memory.
type ReportContextBuilder func(c *Context) ReportContext

// ReportContext is the result of scanning SnowConvert's conversion report
// for known, ignorable issue codes.
type ReportContext struct {
	IgnoredCodes      []string
	ReportScanSummary map[string]any
	Extra             map[string]any
}

func applyReportContext(c *Context, rc ReportContext) {
	c.ReportContext = rc.Extra
	c.IgnoredReportCodes = rc.IgnoredCodes
	c.ReportScanSummary = rc.ReportScanSummary
}

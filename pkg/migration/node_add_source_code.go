package migration

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// AddSourceCode copies source files into the scai project and runs
// `scai code add`. Ported from add_source_code_node.
func AddSourceCode(ctx context.Context, c *Context, runner CLIRunner, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Adding source code for project: "+c.ProjectName, nil)

	sourceDir := filepath.Join(c.ProjectPath, "source")

	sourceInput := c.SourceDirectory
	if sourceInput == "" && len(c.SourceFiles) > 0 {
		sourceInput = c.SourceFiles[0]
	}
	if sourceInput == "" {
		return failAddSourceCode(c, "No source directory provided for code add")
	}

	sourceInputAbs, err := filepath.Abs(sourceInput)
	if err != nil {
		return failAddSourceCode(c, "Exception during source code addition: "+err.Error())
	}
	if info, err := os.Stat(sourceInputAbs); err == nil && !info.IsDir() {
		sourceInputAbs = filepath.Dir(sourceInputAbs)
	}

	if info, err := os.Stat(sourceInputAbs); err != nil || !info.IsDir() {
		sourceDirAbs, _ := filepath.Abs(sourceDir)
		if err := os.MkdirAll(sourceDirAbs, 0o755); err != nil {
			return failAddSourceCode(c, "Exception during source code addition: "+err.Error())
		}
		warning := "Source directory does not exist: " + sourceInputAbs + ". Using fallback directory: " + sourceDirAbs
		c.Warnings = append(c.Warnings, warning)
		LogEvent(c, "warning", warning, nil)
		sourceInputAbs = sourceDirAbs
	}

	// Clean scai destination to avoid FDS0002.
	if sourceDirAbs, err := filepath.Abs(sourceDir); err == nil {
		if info, err := os.Stat(sourceDirAbs); err == nil && info.IsDir() {
			_ = os.RemoveAll(sourceDirAbs)
		}
	}

	args := []string{"code", "add", "-i", sourceInputAbs}
	result, err := runWithEcho(ctx, runner, pty, args, c.ProjectPath, DefaultCommandTimeout)
	if err != nil {
		return failAddSourceCode(c, "Exception during source code addition: "+err.Error())
	}

	if result.Stdout != "" {
		LogEvent(c, "info", "scai code add output", map[string]any{"stdout": result.Stdout})
	}
	if result.Stderr != "" {
		LogEvent(c, "warning", "scai code add stderr", map[string]any{"stderr": result.Stderr})
	}

	if result.ExitCode != 0 {
		detail := firstNonEmpty(result.Stderr, result.Stdout, "Unknown error")
		c.Errors = append(c.Errors, "Failed to add source code: "+detail)
		c.ScaiSourceAdded = false
		c.CurrentStage = StageError
		LogEvent(c, "error", "Failed to add source code: "+detail, nil)
		return c
	}

	c.ScaiSourceAdded = true
	c.CurrentStage = StageAddSourceCode
	c.Touch(time.Now())
	LogEvent(c, "info", "Source code added successfully", nil)

	if c.OriginalCode == "" {
		c.OriginalCode = ReadSQLFiles(sourceDir)
	}

	return c
}

func failAddSourceCode(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.ScaiSourceAdded = false
	c.CurrentStage = StageError
	LogEvent(c, "error", msg, nil)
	return c
}

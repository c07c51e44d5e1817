package migration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ignorableDirEntries are left over from OS file managers and don't count
// toward "project directory is non-empty".
var ignorableDirEntries = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, "desktop.ini": true,
}

// InitProject creates (or resets) the scai project directory and runs
// `scai init`. Ported from init_project_node.
func InitProject(ctx context.Context, c *Context, runner CLIRunner, pty PTYWriter, projectsRoot string) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Initializing project: "+c.ProjectName, nil)

	projectPath := filepath.Join(projectsRoot, c.ProjectName)

	if entries, err := os.ReadDir(projectPath); err == nil {
		nonEmpty := false
		for _, e := range entries {
			if !ignorableDirEntries[e.Name()] {
				nonEmpty = true
				break
			}
		}
		if nonEmpty {
			warning := "Project directory already exists and is not empty. Resetting before init: " + projectPath
			c.Warnings = append(c.Warnings, warning)
			LogEvent(c, "warning", warning, nil)
			_ = os.RemoveAll(projectPath)
		}
	}

	if err := os.MkdirAll(projectPath, 0o755); err != nil {
		return failInitProject(c, "Exception during project initialization: "+err.Error())
	}

	args := []string{"init", "-l", c.SourceLanguage, "-n", c.ProjectName, "-s"}
	result, err := runWithEcho(ctx, runner, pty, args, projectPath, DefaultCommandTimeout)
	if err != nil {
		return failInitProject(c, "Exception during project initialization: "+err.Error())
	}

	if result.Stdout != "" {
		LogEvent(c, "info", "scai init output", map[string]any{"stdout": result.Stdout})
	}
	if result.Stderr != "" {
		LogEvent(c, "warning", "scai init stderr", map[string]any{"stderr": result.Stderr})
	}

	if result.ExitCode != 0 {
		detail := firstNonEmpty(result.Stderr, result.Stdout, "exit code non-zero")
		return failInitProject(c, "Failed to initialize project: "+detail)
	}

	c.ProjectPath = projectPath
	c.ScaiProjectInitialized = true
	c.CurrentStage = StageInitProject
	c.Touch(time.Now())
	LogEvent(c, "info", "Project initialized at: "+projectPath, nil)
	return c
}

func failInitProject(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.ScaiProjectInitialized = false
	c.CurrentStage = StageError
	LogEvent(c, "error", msg, nil)
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// DefaultCommandTimeout is the default scai subprocess timeout, matching
// run_subprocess_with_echo's 1800s default.
const DefaultCommandTimeout = 1800 * time.Second

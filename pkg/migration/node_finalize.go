package migration

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// Finalize copies converted output to the outputs directory, builds the
// summary report, and marks the workflow completed. Ported from
// finalize_node.
func Finalize(c *Context, outputsRoot string, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Finalizing migration for project: "+c.ProjectName, nil)
	PTYEcho(pty, "$ Finalizing migration...")

	outputDir := filepath.Join(outputsRoot, c.ProjectName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return failFinalize(c, "Exception during finalization: "+err.Error())
	}

	convertedDir := filepath.Join(c.ProjectPath, "converted")
	if info, err := os.Stat(convertedDir); err == nil && info.IsDir() {
		err := filepath.Walk(convertedDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, err := filepath.Rel(convertedDir, path)
			if err != nil {
				return err
			}
			dst := filepath.Join(outputDir, "converted", rel)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := copyFile(path, dst); err != nil {
				return err
			}
			c.OutputFiles = append(c.OutputFiles, dst)
			return nil
		})
		if err != nil {
			return failFinalize(c, "Exception during finalization: "+err.Error())
		}
	}

	now := time.Now()
	c.SummaryReport = &SummaryReport{
		ProjectName:            c.ProjectName,
		SourceLanguage:         c.SourceLanguage,
		TargetPlatform:         c.TargetPlatform,
		ScaiProjectInitialized: c.ScaiProjectInitialized,
		ScaiSourceAdded:        c.ScaiSourceAdded,
		ScaiConverted:          c.ScaiConverted,
		SelfHealIterations:     c.SelfHealIteration,
		ValidationPassed:       c.ValidationPassed,
		ValidationIssuesCount:  len(c.ValidationIssues),
		ErrorsCount:            len(c.Errors),
		WarningsCount:          len(c.Warnings),
		OutputFilesCount:       len(c.OutputFiles),
		Status:                 "completed",
		CompletedAt:            now,
	}

	c.OutputPath = outputDir
	c.ValidationPassed = true
	c.CurrentStage = StageCompleted
	c.Touch(now)
	LogEvent(c, "info", "Migration finalized. Output at: "+outputDir, nil)
	PTYEcho(pty, "[DONE] Migration complete. Output: "+outputDir)

	return c
}

func failFinalize(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.CurrentStage = StageError
	LogEvent(c, "error", msg, nil)
	return c
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

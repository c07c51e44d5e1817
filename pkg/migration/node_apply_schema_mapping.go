package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scaiflow/orchestrator/pkg/crosswalk"
)

// ApplySchemaMapping rewrites schema qualifiers in every SQL file under the
// project's source directory using the CSV crosswalk, then replaces the
// source directory with the mapped output. Ported from
// apply_schema_mapping_node / process_sql_with_pandas_replace.
func ApplySchemaMapping(c *Context) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Applying schema mapping for project: "+c.ProjectName, nil)

	sourceDir := filepath.Join(c.ProjectPath, "source")
	mappedDir := filepath.Join(c.ProjectPath, "source_mapped")

	if err := os.MkdirAll(mappedDir, 0o755); err != nil {
		return failSchemaMapping(c, err)
	}

	cw, err := crosswalk.Load(c.MappingCSVPath)
	if err != nil {
		return failSchemaMapping(c, err)
	}

	files := ListSQLFiles(sourceDir)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			msg := fmt.Sprintf("Schema mapping: failed to read %s: %v", path, err)
			c.Warnings = append(c.Warnings, msg)
			LogEvent(c, "info", msg, nil)
			continue
		}

		mapped, summary := cw.Apply(string(content))
		if summary.MatchCount > 0 {
			msg := fmt.Sprintf("Schema mapping: %s matched %d, replaced %d", filepath.Base(path), summary.MatchCount, summary.ReplacementCount)
			c.Warnings = append(c.Warnings, msg)
			LogEvent(c, "info", msg, nil)
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		outPath := filepath.Join(mappedDir, rel)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return failSchemaMapping(c, err)
		}
		if err := os.WriteFile(outPath, []byte(mapped), 0o644); err != nil {
			return failSchemaMapping(c, err)
		}
	}

	// Replace original source with mapped source.
	if info, err := os.Stat(sourceDir); err == nil && info.IsDir() {
		if err := os.RemoveAll(sourceDir); err != nil {
			return failSchemaMapping(c, err)
		}
	}
	if info, err := os.Stat(mappedDir); err == nil && info.IsDir() {
		if err := os.Rename(mappedDir, sourceDir); err != nil {
			return failSchemaMapping(c, err)
		}
	} else {
		_ = os.MkdirAll(sourceDir, 0o755)
		warning := "Mapped output directory not found: " + mappedDir
		c.Warnings = append(c.Warnings, warning)
		LogEvent(c, "warning", warning, nil)
	}

	c.CurrentStage = StageApplySchemaMapping
	c.Touch(time.Now())
	LogEvent(c, "info", "Schema mapping applied successfully", nil)

	c.SchemaMappedCode = ReadSQLFiles(sourceDir)

	return c
}

func failSchemaMapping(c *Context, err error) *Context {
	msg := "Exception during schema mapping: " + err.Error()
	c.Errors = append(c.Errors, msg)
	c.CurrentStage = StageError
	LogEvent(c, "error", msg, nil)
	return c
}

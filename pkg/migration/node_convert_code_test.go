package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertCodeReadsConvertedFiles(t *testing.T) {
	projectPath := t.TempDir()
	convertedDir := filepath.Join(projectPath, "converted")
	require.NoError(t, os.MkdirAll(convertedDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(convertedDir, "out.sql"), []byte("SELECT 1;"), 0o644))

	c := NewContext("run-1", "acme")
	c.ProjectPath = projectPath
	runner := &fakeCLIRunner{result: CLIResult{ExitCode: 0}}

	ConvertCode(context.Background(), c, runner, nil, nil)

	require.NotEqual(t, StageError, c.CurrentStage)
	assert.True(t, c.ScaiConverted)
	assert.Len(t, c.ConvertedFiles, 1)
	assert.Contains(t, c.ConvertedCode, "SELECT 1;")
}

func TestConvertCodeFallsBackToInMemoryCode(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	c.SchemaMappedCode = "SELECT 2;"
	runner := &fakeCLIRunner{result: CLIResult{ExitCode: 0}}

	ConvertCode(context.Background(), c, runner, nil, nil)

	assert.Equal(t, "SELECT 2;", c.ConvertedCode)
	require.Len(t, c.Warnings, 1)
}

func TestConvertCodeFailureSetsError(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	runner := &fakeCLIRunner{result: CLIResult{ExitCode: 1, Stderr: "conversion crashed"}}

	ConvertCode(context.Background(), c, runner, nil, nil)

	assert.Equal(t, StageError, c.CurrentStage)
	assert.False(t, c.ScaiConverted)
}

func TestConvertCodeRefreshesReportContext(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	runner := &fakeCLIRunner{result: CLIResult{ExitCode: 0}}

	var built bool
	builder := func(ctx *Context) ReportContext {
		built = true
		return ReportContext{IgnoredCodes: []string{"EWI0001"}}
	}

	ConvertCode(context.Background(), c, runner, nil, builder)

	assert.True(t, built)
	assert.Equal(t, []string{"EWI0001"}, c.IgnoredReportCodes)
}

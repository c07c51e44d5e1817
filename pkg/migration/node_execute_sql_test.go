package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	failOn  string
	failMsg string
	calls   []string
}

func (f *fakeExecutor) ExecuteStatement(ctx context.Context, statement string) (StatementResult, error) {
	f.calls = append(f.calls, statement)
	if f.failOn != "" && statement == f.failOn {
		return StatementResult{}, errors.New(f.failMsg)
	}
	return StatementResult{Status: "success", RowCount: 1}, nil
}

func TestExecuteSQLTextRunsEachStatement(t *testing.T) {
	exec := &fakeExecutor{}
	results, err := ExecuteSQLText(context.Background(), exec, "SELECT 1; SELECT 2;")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, exec.calls)
}

func TestExecuteSQLTextStopsAtFirstFailure(t *testing.T) {
	exec := &fakeExecutor{failOn: "SELECT 2", failMsg: "boom"}
	_, err := ExecuteSQLText(context.Background(), exec, "SELECT 1; SELECT 2; SELECT 3;")

	require.Error(t, err)
	stmtErr, ok := err.(*StatementError)
	require.True(t, ok)
	assert.Equal(t, "SELECT 2", stmtErr.Statement)
	assert.Equal(t, 1, stmtErr.StatementIndex)
	assert.Len(t, stmtErr.PartialResults, 1)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, exec.calls)
}

func TestExecuteSQLMissingObjectRoutesToHumanReview(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	c.ConvertedCode = "SELECT * FROM MISSING_TABLE;"
	exec := &fakeExecutor{failOn: "SELECT * FROM MISSING_TABLE", failMsg: `Object 'MISSING_TABLE' does not exist or not authorized.`}

	ExecuteSQL(context.Background(), c, exec, nil)

	assert.Equal(t, StageHumanReview, c.CurrentStage)
	assert.True(t, c.RequiresDDLUpload)
	assert.True(t, c.RequiresHumanIntervention)
	assert.Contains(t, c.MissingObjects, "MISSING_TABLE")
	assert.Equal(t, StageExecuteSQL, c.ResumeFromStage)
}

func TestExecuteSQLGenericErrorRoutesToSelfHeal(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	c.ConvertedCode = "SELEC 1;"
	exec := &fakeExecutor{failOn: "SELEC 1", failMsg: "syntax error"}

	ExecuteSQL(context.Background(), c, exec, nil)

	assert.NotEqual(t, StageHumanReview, c.CurrentStage)
	assert.False(t, c.ExecutionPassed)
	require.Len(t, c.ValidationIssues, 1)
	assert.Equal(t, "execution_error", c.ValidationIssues[0].Type)
}

func TestExecuteSQLSuccessMarksPassed(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	c.ConvertedCode = "SELECT 1;"
	exec := &fakeExecutor{}

	ExecuteSQL(context.Background(), c, exec, nil)

	assert.True(t, c.ExecutionPassed)
	assert.Empty(t, c.ExecutionErrors)
}

func TestExecuteSQLNoContentFails(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.ProjectPath = t.TempDir()
	exec := &fakeExecutor{}

	ExecuteSQL(context.Background(), c, exec, nil)

	assert.False(t, c.ExecutionPassed)
	require.Len(t, c.ExecutionErrors, 1)
}

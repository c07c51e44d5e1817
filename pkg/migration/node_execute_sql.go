package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scaiflow/orchestrator/pkg/sqlsplit"
)

// StatementResult is one executed statement's outcome, mirroring the
// row-preview dict execute_sql_with_chat_runtime appends per statement.
type StatementResult struct {
	StatementIndex int      `json:"statement_index"`
	Status         string   `json:"status"`
	Statement      string   `json:"statement"`
	RowCount       int      `json:"row_count"`
	OutputPreview  []string `json:"output_preview,omitempty"`
}

// StatementError reports which statement in a batch failed, along with the
// results of every statement executed before it — the Go analogue of
// SQLExecutionError's statement/statement_index/partial_results fields.
type StatementError struct {
	Message         string
	Statement       string
	StatementIndex  int
	PartialResults  []StatementResult
}

func (e *StatementError) Error() string { return e.Message }

// SQLExecutor runs a single SQL statement against the target warehouse and
// reports a row-preview result. Implementations wrap the live Snowflake
// session; tests use a fake.
type SQLExecutor interface {
	ExecuteStatement(ctx context.Context, statement string) (StatementResult, error)
}

// ExecuteSQLText splits sqlText into statements via sqlsplit and runs each
// through executor, stopping at the first failure and returning a
// *StatementError carrying the partial results, matching
// execute_sql_with_chat_runtime's statement-by-statement contract.
func ExecuteSQLText(ctx context.Context, executor SQLExecutor, sqlText string) ([]StatementResult, error) {
	statements := sqlsplit.Split(sqlText)
	results := make([]StatementResult, 0, len(statements))
	for idx, stmt := range statements {
		result, err := executor.ExecuteStatement(ctx, stmt)
		if err != nil {
			return results, &StatementError{
				Message:        err.Error(),
				Statement:      stmt,
				StatementIndex: idx,
				PartialResults: results,
			}
		}
		result.StatementIndex = idx
		result.Statement = stmt
		results = append(results, result)
	}
	return results, nil
}

// ExecuteSQL runs the project's converted SQL files (or, absent files, the
// in-memory converted code) against the target warehouse. On a missing-
// object error it routes to human_review with a DDL-upload request; on any
// other execution error it falls through to self_heal. Ported from
// execute_sql_node / _apply_uploaded_ddl.
func ExecuteSQL(ctx context.Context, c *Context, executor SQLExecutor, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	c.CurrentStage = StageExecuteSQL
	c.Touch(time.Now())
	LogEvent(c, "info", "Executing converted SQL", nil)
	PTYEcho(pty, "$ Executing converted SQL in Snowflake...")

	if c.RequiresDDLUpload {
		c = applyUploadedDDL(ctx, c, executor, pty)
		if c.RequiresDDLUpload {
			return c
		}
	}

	convertedDir := filepath.Join(c.ProjectPath, "converted")
	sqlFiles := ListSQLFiles(convertedDir)

	var (
		failedFile  string
		failedIndex int
		stmtErr     *StatementError
	)

	if len(sqlFiles) > 0 {
		start := c.LastExecutedFileIndex + 1
		if start < 0 {
			start = 0
		}
		for index := start; index < len(sqlFiles); index++ {
			sqlFile := sqlFiles[index]
			PTYEcho(pty, "  Executing: "+filepath.Base(sqlFile))

			content, err := os.ReadFile(sqlFile)
			if err != nil {
				stmtErr = &StatementError{Message: err.Error()}
				failedFile, failedIndex = sqlFile, index
				break
			}
			text := strings.TrimSpace(string(content))
			if text == "" {
				c.ExecutionLog = append(c.ExecutionLog, ExecutionLogEntry{File: sqlFile, Index: index, Status: "skipped_empty"})
				c.LastExecutedFileIndex = index
				continue
			}

			results, err := ExecuteSQLText(ctx, executor, text)
			if err != nil {
				var ok bool
				stmtErr, ok = err.(*StatementError)
				if !ok {
					stmtErr = &StatementError{Message: err.Error()}
				}
				failedFile, failedIndex = sqlFile, index
				break
			}
			c.ExecutionLog = append(c.ExecutionLog, ExecutionLogEntry{
				File: sqlFile, Index: index, Status: "success", Statements: results,
			})
			c.LastExecutedFileIndex = index
		}
	} else if strings.TrimSpace(c.ConvertedCode) != "" {
		results, err := ExecuteSQLText(ctx, executor, c.ConvertedCode)
		if err != nil {
			var ok bool
			stmtErr, ok = err.(*StatementError)
			if !ok {
				stmtErr = &StatementError{Message: err.Error()}
			}
			failedFile, failedIndex = "in_memory_converted_code", 0
		} else {
			c.ExecutionLog = append(c.ExecutionLog, ExecutionLogEntry{
				File: "in_memory_converted_code", Index: 0, Status: "success", Statements: results,
			})
			c.LastExecutedFileIndex = 0
		}
	} else {
		stmtErr = &StatementError{Message: "No converted SQL files or converted_code found for execution."}
	}

	if stmtErr == nil {
		c.ExecutionPassed = true
		c.ExecutionErrors = nil
		c.MissingObjects = nil
		c.ValidationIssues = nil
		c.Touch(time.Now())
		LogEvent(c, "info", "Converted SQL execution completed successfully", nil)
		PTYEcho(pty, "[OK] SQL execution completed successfully")
		return c
	}

	return handleExecutionFailure(c, pty, stmtErr, sqlFiles, failedFile, failedIndex)
}

func handleExecutionFailure(c *Context, pty PTYWriter, stmtErr *StatementError, sqlFiles []string, fallbackFile string, fallbackIndex int) *Context {
	errType, objectName := ClassifyError(stmtErr.Message)

	file := fallbackFile
	index := fallbackIndex
	if file == "" {
		index = c.LastExecutedFileIndex + 1
		if len(sqlFiles) > 0 && index < len(sqlFiles) {
			file = sqlFiles[index]
		} else {
			file = "unknown"
		}
	}

	c.ExecutionPassed = false
	c.ExecutionErrors = append(c.ExecutionErrors, Issue{
		Type: errType, Message: stmtErr.Message, Code: objectName, Severity: "error",
	})
	c.ExecutionLog = append(c.ExecutionLog, ExecutionLogEntry{
		File: file, Index: index, Status: "failed",
		ErrorType: errType, ErrorMessage: stmtErr.Message, MissingObject: objectName,
		Statements:      stmtErr.PartialResults,
		FailedStatement: stmtErr.Statement, FailedStmtIndex: stmtErr.StatementIndex,
	})

	PTYEcho(pty, fmt.Sprintf("[ERROR] SQL execution failed: %s", errType))

	if errType == "missing_object" {
		if objectName != "" && !containsString(c.MissingObjects, objectName) {
			c.MissingObjects = append(c.MissingObjects, objectName)
		}
		c.RequiresDDLUpload = true
		c.RequiresHumanIntervention = true
		c.ResumeFromStage = StageExecuteSQL
		c.CurrentStage = StageHumanReview

		missingDetail := "unresolved object"
		if len(c.MissingObjects) > 0 {
			missingDetail = strings.Join(c.MissingObjects, ", ")
		}
		c.HumanInterventionReason = fmt.Sprintf("Missing object detected: %s. Upload DDL script to create required objects, then resume.", missingDetail)
		LogEvent(c, "warning", c.HumanInterventionReason, nil)
		PTYEcho(pty, "[PAUSED] Missing object: "+missingDetail)
		c.Touch(time.Now())
		return c
	}

	c.ValidationIssues = append(c.ValidationIssues, Issue{Type: "execution_error", Severity: "error", Message: stmtErr.Message})
	LogEvent(c, "error", "Execution failed, routing to self-heal: "+stmtErr.Message, nil)
	c.Touch(time.Now())
	return c
}

func applyUploadedDDL(ctx context.Context, c *Context, executor SQLExecutor, pty PTYWriter) *Context {
	if c.DDLUploadPath == "" {
		return routeToHumanReview(c, "DDL upload is required to resolve missing objects.")
	}
	if _, err := os.Stat(c.DDLUploadPath); err != nil {
		return routeToHumanReview(c, "DDL upload is required to resolve missing objects.")
	}

	content, err := os.ReadFile(c.DDLUploadPath)
	if err != nil {
		return failDDLUpload(c, "Failed to execute uploaded DDL: "+err.Error())
	}

	ddlSQL := string(content)
	if strings.TrimSpace(ddlSQL) == "" {
		return routeToHumanReview(c, "Uploaded DDL file is empty.")
	}

	PTYEcho(pty, "$ Executing uploaded DDL script...")

	if _, err := ExecuteSQLText(ctx, executor, ddlSQL); err != nil {
		return failDDLUpload(c, "Failed to execute uploaded DDL: "+err.Error())
	}

	c.RequiresDDLUpload = false
	c.DDLUploadPath = ""
	c.ResumeFromStage = StageExecuteSQL
	c.RequiresHumanIntervention = false
	c.HumanInterventionReason = ""
	LogEvent(c, "info", "Uploaded DDL executed successfully, resuming SQL execution", nil)
	PTYEcho(pty, "[OK] DDL executed, resuming SQL execution")
	return c
}

func routeToHumanReview(c *Context, reason string) *Context {
	c.CurrentStage = StageHumanReview
	c.RequiresHumanIntervention = true
	c.HumanInterventionReason = reason
	LogEvent(c, "warning", reason, nil)
	return c
}

func failDDLUpload(c *Context, msg string) *Context {
	c.Errors = append(c.Errors, msg)
	c.CurrentStage = StageHumanReview
	c.RequiresHumanIntervention = true
	c.RequiresDDLUpload = true
	c.HumanInterventionReason = msg
	LogEvent(c, "error", msg, nil)
	return c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

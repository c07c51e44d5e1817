package migration

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReportIssue is one normalized row of a SnowConvert Issues CSV.
type ReportIssue struct {
	Code        string `json:"code"`
	Severity    string `json:"severity"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentFile  string `json:"parent_file"`
	Line        string `json:"line"`
	Column      string `json:"column"`
	MigrationID string `json:"migration_id"`
}

// RuntimeErrorSummary is one recent execution error surfaced into the
// report memory for self-heal.
type RuntimeErrorSummary struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	ObjectName     string `json:"object_name"`
	StatementIndex int    `json:"statement_index"`
}

// FailedStatementSummary is one recent per-file execution failure.
type FailedStatementSummary struct {
	File                 string `json:"file"`
	ErrorType            string `json:"error_type"`
	ErrorMessage         string `json:"error_message"`
	FailedStatement      string `json:"failed_statement"`
	FailedStatementIndex int    `json:"failed_statement_index"`
}

// PriorAttemptSummary is one recent self-heal iteration's outcome,
// surfaced so the LLM doesn't repeat a failed fix.
type PriorAttemptSummary struct {
	Iteration   int    `json:"iteration"`
	Success     bool   `json:"success"`
	IssuesFixed int    `json:"issues_fixed"`
	Error       string `json:"error"`
}

const (
	maxActionableIssues  = 25
	maxRecentErrors      = 5
	maxFailedStatements  = 3
	maxPriorHealAttempts = 5
)

// LoadIgnoredReportCodes reads the configured set of SnowConvert issue
// codes to exclude from self-heal's actionable list, normalized to
// upper-case and de-duplicated. A missing or unreadable file yields an
// empty list rather than an error, matching load_ignored_report_codes.
func LoadIgnoredReportCodes(path string) []string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var payload struct {
		IgnoredCodes []string `json:"ignored_codes"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var codes []string
	for _, code := range payload.IgnoredCodes {
		v := strings.ToUpper(strings.TrimSpace(code))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		codes = append(codes, v)
	}
	sort.Strings(codes)
	return codes
}

// BuildReportContextMemory scans the project's SnowConvert report
// directory (converted/Reports/SnowConvert) for the latest Issues CSV and
// Assessment JSON, narrows to actionable (non-ignored) issues, and pairs
// them with recent runtime execution errors — the context self_heal hands
// to the LLM on every iteration. Ported from build_report_context_memory.
func BuildReportContextMemory(c *Context, ignoredCodesPath string) ReportContext {
	reportsDir := filepath.Join(c.ProjectPath, "converted", "Reports", "SnowConvert")

	issuesFile := findLatest(reportsDir, "Issues.*.csv")
	assessmentFile := findLatest(reportsDir, "Assessment.*.json")

	ignoredCodes := LoadIgnoredReportCodes(ignoredCodesPath)
	ignoredSet := make(map[string]bool, len(ignoredCodes))
	for _, code := range ignoredCodes {
		ignoredSet[code] = true
	}

	allIssues := parseIssuesCSV(issuesFile)
	var actionable []ReportIssue
	ignoredCount := 0
	for _, issue := range allIssues {
		if ignoredSet[issue.Code] {
			ignoredCount++
			continue
		}
		actionable = append(actionable, issue)
	}
	if len(actionable) > maxActionableIssues {
		actionable = actionable[:maxActionableIssues]
	}

	assessmentSummary := parseAssessmentJSON(assessmentFile)
	latestErrors := recentExecutionErrors(c, maxRecentErrors)
	failedStatements := recentFailedStatements(c, maxFailedStatements)
	priorAttempts := recentSelfHealAttempts(c, maxPriorHealAttempts)

	extra := map[string]any{
		"reports_found": map[string]string{
			"issues_csv":      issuesFile,
			"assessment_json": assessmentFile,
		},
		"assessment_summary":       assessmentSummary,
		"actionable_issues":        actionable,
		"latest_execution_errors":  latestErrors,
		"failed_statements":        failedStatements,
		"prior_self_heal_attempts": priorAttempts,
	}

	return ReportContext{
		IgnoredCodes: ignoredCodes,
		ReportScanSummary: map[string]any{
			"total_report_issues": len(allIssues),
			"actionable_issues":   len(actionable),
			"ignored_issues":      ignoredCount,
		},
		Extra: extra,
	}
}

func findLatest(dir, pattern string) string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	best, bestTime := "", int64(-1)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > bestTime {
			best, bestTime = m, mt
		}
	}
	return best
}

func parseIssuesCSV(path string) []ReportIssue {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return nil
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	get := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var issues []ReportIssue
	for _, row := range rows[1:] {
		issues = append(issues, ReportIssue{
			Code:        strings.ToUpper(get(row, "Code")),
			Severity:    get(row, "Severity"),
			Name:        get(row, "Name"),
			Description: get(row, "Description"),
			ParentFile:  get(row, "ParentFile"),
			Line:        get(row, "Line"),
			Column:      get(row, "Column"),
			MigrationID: get(row, "MigrationID"),
		})
	}
	return issues
}

// assessmentFields are the keys preserved from SnowConvert's Assessment
// JSON, matching _parse_assessment_json's allowlist.
var assessmentFields = []string{
	"AppVersion", "CoreVersion", "StartConversion", "ElapsedTime",
	"CodeCompletenessScore", "TotalFiles", "TotalWarnings",
	"TotalConversionErrors", "TotalParsingErrors", "TotalLinesOfCode",
	"TotalFDMs", "UniqueFDMs",
}

func parseAssessmentJSON(path string) map[string]any {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}

	summary := make(map[string]any, len(assessmentFields))
	for _, key := range assessmentFields {
		if v, ok := payload[key]; ok {
			summary[key] = v
		}
	}
	return summary
}

func recentExecutionErrors(c *Context, limit int) []RuntimeErrorSummary {
	errs := c.ExecutionErrors
	if len(errs) > limit {
		errs = errs[len(errs)-limit:]
	}
	out := make([]RuntimeErrorSummary, 0, len(errs))
	for _, e := range errs {
		out = append(out, RuntimeErrorSummary{Type: e.Type, Message: e.Message, ObjectName: e.Code})
	}
	return out
}

func recentFailedStatements(c *Context, limit int) []FailedStatementSummary {
	var out []FailedStatementSummary
	for i := len(c.ExecutionLog) - 1; i >= 0 && len(out) < limit; i-- {
		entry := c.ExecutionLog[i]
		if entry.Status != "failed" {
			continue
		}
		out = append(out, FailedStatementSummary{
			File: entry.File, ErrorType: entry.ErrorType, ErrorMessage: entry.ErrorMessage,
			FailedStatement: entry.FailedStatement, FailedStatementIndex: entry.FailedStmtIndex,
		})
	}
	return out
}

func recentSelfHealAttempts(c *Context, limit int) []PriorAttemptSummary {
	log := c.SelfHealLog
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]PriorAttemptSummary, 0, len(log))
	for _, entry := range log {
		out = append(out, PriorAttemptSummary{
			Iteration: entry.Iteration, Success: entry.Success,
			IssuesFixed: entry.IssuesFixed, Error: entry.Error,
		})
	}
	return out
}

// Package migration implements the nine-node autonomous migration pipeline:
// init_project, add_source_code, apply_schema_mapping, convert_code,
// execute_sql, self_heal, validate, human_review, and finalize. Each node is
// a pure function of *Context that mutates and returns it, mirroring the
// LangGraph node contract it is ported from.
package migration

import (
	"sync"
	"time"
)

// Stage is one node of the migration workflow graph.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageInitProject        Stage = "init_project"
	StageAddSourceCode      Stage = "add_source_code"
	StageApplySchemaMapping Stage = "apply_schema_mapping"
	StageConvertCode        Stage = "convert_code"
	StageExecuteSQL         Stage = "execute_sql"
	StageSelfHeal           Stage = "self_heal"
	StageValidate           Stage = "validate"
	StageHumanReview        Stage = "human_review"
	StageFinalize           Stage = "finalize"
	StageError              Stage = "error"
	StageCompleted          Stage = "completed"
)

// Issue is a single validation/execution finding, keyed the way the
// original report dictionaries were (type, severity, message, plus
// free-form extra fields callers may attach).
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

// ExecutionLogEntry records one file or statement batch execution attempt.
type ExecutionLogEntry struct {
	File              string             `json:"file"`
	Index             int                `json:"index"`
	Status            string             `json:"status"`
	ErrorType         string             `json:"error_type,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	MissingObject     string             `json:"missing_object,omitempty"`
	FailedStatement   string             `json:"failed_statement,omitempty"`
	FailedStmtIndex   int                `json:"failed_statement_index,omitempty"`
	Statements        []StatementResult  `json:"statements,omitempty"`
}

// SelfHealLogEntry records one self-heal iteration's outcome.
type SelfHealLogEntry struct {
	Iteration    int       `json:"iteration"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	FixesApplied int       `json:"fixes_applied,omitempty"`
	IssuesFixed  int       `json:"issues_fixed,omitempty"`
	Error        string    `json:"error,omitempty"`
	LLMProvider  string    `json:"llm_provider,omitempty"`
}

// ActivityLogEntry is one structured line appended by LogEvent, wired to
// the SSE event stream through Context.ActivityLogSink.
type ActivityLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Stage     Stage          `json:"stage"`
	Data      map[string]any `json:"data,omitempty"`
}

// SummaryReport is the final human-readable migration summary produced by
// the finalize node.
type SummaryReport struct {
	ProjectName           string    `json:"project_name"`
	SourceLanguage        string    `json:"source_language"`
	TargetPlatform        string    `json:"target_platform"`
	ScaiProjectInitialized bool     `json:"scai_project_initialized"`
	ScaiSourceAdded       bool      `json:"scai_source_added"`
	ScaiConverted         bool      `json:"scai_converted"`
	SelfHealIterations    int       `json:"self_heal_iterations"`
	ValidationPassed      bool      `json:"validation_passed"`
	ValidationIssuesCount int       `json:"validation_issues_count"`
	ErrorsCount           int       `json:"errors_count"`
	WarningsCount         int       `json:"warnings_count"`
	OutputFilesCount      int       `json:"output_files_count"`
	Status                string    `json:"status"`
	CompletedAt           time.Time `json:"completed_at"`
}

// Context is the shared mutable state threaded through every stage node,
// ported field-for-field from the LangGraph MigrationContext dataclass.
type Context struct {
	mu sync.Mutex

	// Project identification.
	ProjectName    string
	ProjectPath    string
	SourceLanguage string
	TargetPlatform string

	// Snowflake connection parameters.
	SFAccount       string
	SFUser          string
	SFRole          string
	SFWarehouse     string
	SFDatabase      string
	SFSchema        string
	SFAuthenticator string

	// Input files.
	SourceFiles     []string
	MappingCSVPath  string
	SourceDirectory string

	// Workflow tracking.
	CurrentFile  string
	CurrentStage Stage

	// Code artifacts.
	OriginalCode     string
	SchemaMappedCode string
	ConvertedCode    string
	FinalCode        string
	StatementType    string
	ConvertedFiles   []string

	// SCAI CLI tool flags.
	ScaiProjectInitialized bool
	ScaiSourceAdded        bool
	ScaiConverted          bool

	// Self-healing state.
	SelfHealIteration    int
	MaxSelfHealIterations int
	SelfHealLog          []SelfHealLogEntry

	// Validation state.
	ValidationPassed      bool
	ValidationIssues      []Issue
	ValidationResultsJSON map[string]any

	// Execution state.
	ExecutionPassed       bool
	ExecutionErrors       []Issue
	ExecutionLog          []ExecutionLogEntry
	MissingObjects        []string
	LastExecutedFileIndex int

	// Error tracking.
	Errors     []string
	Warnings   []string
	RetryCount int
	MaxRetries int

	// Human review / intervention.
	RequiresHumanIntervention bool
	HumanInterventionReason  string
	RequiresDDLUpload        bool
	DDLUploadPath            string
	ResumeFromStage          Stage

	// Activity logging, wired to the SSE event stream.
	ActivityLog     []ActivityLogEntry
	ActivityLogSink func(ActivityLogEntry)

	// LLM Supervisor routing.
	SupervisorDecision  string
	SupervisorReasoning string

	// SnowConvert report context memory, consumed by self_heal.
	ReportContext     map[string]any
	IgnoredReportCodes []string
	ReportScanSummary map[string]any

	// Output.
	OutputPath    string
	OutputFiles   []string
	SummaryReport *SummaryReport

	// Timestamps and session linkage.
	CreatedAt time.Time
	UpdatedAt time.Time
	SessionID string
	RunID     string
}

// NewContext builds a Context with the same defaults the dataclass carries:
// teradata source, snowflake target, 5 self-heal iterations, 3 retries.
func NewContext(runID, projectName string) *Context {
	now := time.Now()
	return &Context{
		ProjectName:           projectName,
		SourceLanguage:        "teradata",
		TargetPlatform:        "snowflake",
		SFAuthenticator:       "externalbrowser",
		CurrentStage:          StageIdle,
		StatementType:         "mixed",
		MaxSelfHealIterations: 5,
		MaxRetries:            3,
		LastExecutedFileIndex: -1,
		CreatedAt:             now,
		UpdatedAt:             now,
		RunID:                 runID,
	}
}

// Touch stamps UpdatedAt with now. The stage nodes, the supervisor and the
// runner's Resume call it explicitly (Go has no free-running datetime.now()
// default-factory equivalent).
func (c *Context) Touch(now time.Time) {
	c.UpdatedAt = now
}

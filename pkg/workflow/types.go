// Package workflow compiles the nine migration stage nodes and the LLM
// supervisor into a run-scoped graph: a hub-and-spoke topology where every
// task node routes unconditionally to the supervisor, and the supervisor's
// decision selects the next node. Ported from graph/scai_workflow.py and
// services/workflow_runner.py.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/scaiflow/orchestrator/pkg/migration"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
	"github.com/scaiflow/orchestrator/pkg/supervisor"
)

// Status is a workflow run's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// stageOrder lists the nine task stages in a fixed order, used only to
// report a stage_index alongside workflow-status snapshots.
var stageOrder = []migration.Stage{
	migration.StageInitProject,
	migration.StageAddSourceCode,
	migration.StageApplySchemaMapping,
	migration.StageConvertCode,
	migration.StageExecuteSQL,
	migration.StageSelfHeal,
	migration.StageValidate,
	migration.StageHumanReview,
	migration.StageFinalize,
}

func stageIndex(stage migration.Stage) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// maxGraphSteps bounds the supervisor-decision loop against a runaway
// proceed/self-heal cycle, mirroring LangGraph's recursion_limit safety net.
const maxGraphSteps = 500

// Run is one in-flight or completed workflow execution.
type Run struct {
	ID        string
	ProjectName string
	Context   *migration.Context
	CreatedAt time.Time

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	events chan any
}

func (r *Run) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// StatusValue returns the run's current status.
func (r *Run) StatusValue() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot is a serializable view of a run, for the status endpoint.
type Snapshot struct {
	RunID                 string `json:"run_id"`
	ProjectName           string `json:"project_name"`
	Status                string `json:"status"`
	Stage                 string `json:"stage"`
	RequiresHumanIntervention bool `json:"requires_human_intervention"`
	RequiresDDLUpload     bool   `json:"requires_ddl_upload"`
	ErrorsCount           int    `json:"errors_count"`
	WarningsCount         int    `json:"warnings_count"`
	SelfHealIteration     int    `json:"self_heal_iteration"`
	OutputPath            string `json:"output_path,omitempty"`
}

// StartParams seeds a new migration context.
type StartParams struct {
	SessionID      string
	SourceLanguage string
	TargetPlatform string
	SourceFiles    []string
	MappingCSVPath string
	SFAccount      string
	SFUser         string
	SFRole         string
	SFWarehouse    string
	SFDatabase     string
	SFSchema       string
	SFAuthenticator string
}

// Dependencies are the concrete collaborators injected into every node call.
// Narrow interfaces throughout (migration.CLIRunner, migration.SQLExecutor,
// migration.Validator, migration.Healer) so the production Snowflake/CLI
// wiring lives at the composition root, not in this package.
type Dependencies struct {
	CLIRunner          migration.CLIRunner
	SQLExecutor        migration.SQLExecutor
	Validator          migration.Validator
	Healer             migration.Healer
	BuildReportContext migration.ReportContextBuilder
	Supervisor         *supervisor.Supervisor
	PTYRegistry        *ptyio.Registry
	ProjectsRoot       string
	OutputsRoot        string
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scaiflow/orchestrator/pkg/events"
	"github.com/scaiflow/orchestrator/pkg/migration"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
	"github.com/scaiflow/orchestrator/pkg/supervisor"
)

// Runner owns every in-memory workflow run for the process. Cancellation is
// tracked the way the teacher's queue.WorkerPool tracks active sessions: a
// run-id → cancel-function registry guarded by its own mutex, never held
// across the blocking graph execution.
type Runner struct {
	deps Dependencies
	log  *slog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunner builds a Runner with the given collaborators.
func NewRunner(deps Dependencies) *Runner {
	return &Runner{
		deps: deps,
		log:  slog.With("component", "workflow.runner"),
		runs: make(map[string]*Run),
	}
}

// Start registers a new run in pending status. The graph does not execute
// until Stream is called.
func (r *Runner) Start(projectName string, params StartParams) *Run {
	runID := uuid.New().String()
	c := migration.NewContext(runID, projectName)
	c.SessionID = params.SessionID
	if params.SourceLanguage != "" {
		c.SourceLanguage = params.SourceLanguage
	}
	if params.TargetPlatform != "" {
		c.TargetPlatform = params.TargetPlatform
	}
	c.SourceFiles = params.SourceFiles
	c.MappingCSVPath = params.MappingCSVPath
	c.SFAccount = params.SFAccount
	c.SFUser = params.SFUser
	c.SFRole = params.SFRole
	c.SFWarehouse = params.SFWarehouse
	c.SFDatabase = params.SFDatabase
	c.SFSchema = params.SFSchema
	if params.SFAuthenticator != "" {
		c.SFAuthenticator = params.SFAuthenticator
	}

	run := &Run{
		ID:          runID,
		ProjectName: projectName,
		Context:     c,
		CreatedAt:   time.Now(),
		status:      StatusPending,
	}

	r.mu.Lock()
	r.runs[runID] = run
	r.mu.Unlock()

	return run
}

// Get returns the run registered under runID.
func (r *Runner) Get(runID string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// Status returns a serializable snapshot of runID.
func (r *Runner) Status(runID string) (Snapshot, error) {
	run, err := r.Get(runID)
	if err != nil {
		return Snapshot{}, err
	}
	c := run.Context
	return Snapshot{
		RunID:                     run.ID,
		ProjectName:               run.ProjectName,
		Status:                    string(run.StatusValue()),
		Stage:                     string(c.CurrentStage),
		RequiresHumanIntervention: c.RequiresHumanIntervention,
		RequiresDDLUpload:         c.RequiresDDLUpload,
		ErrorsCount:               len(c.Errors),
		WarningsCount:             len(c.Warnings),
		SelfHealIteration:         c.SelfHealIteration,
		OutputPath:                c.OutputPath,
	}, nil
}

// SetDDLUploadPath records an uploaded DDL file's path for a run awaiting
// human review. Returns ErrNotAwaitingDDL if the run never requested one.
func (r *Runner) SetDDLUploadPath(runID, path string) error {
	run, err := r.Get(runID)
	if err != nil {
		return err
	}
	if !run.Context.RequiresDDLUpload {
		return ErrNotAwaitingDDL
	}
	run.Context.DDLUploadPath = path
	return nil
}

// Cancel signals the running graph loop to stop at its next suspension
// point. A no-op if the run isn't currently streaming.
func (r *Runner) Cancel(runID string) error {
	run, err := r.Get(runID)
	if err != nil {
		return err
	}
	run.mu.Lock()
	cancel := run.cancel
	run.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Stream begins executing runID's graph from its current stage and returns
// the channel of outbound protocol events. The channel closes when the run
// finishes, pauses, or is cancelled.
func (r *Runner) Stream(ctx context.Context, runID string) (<-chan any, error) {
	run, err := r.Get(runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	if run.events != nil && run.status == StatusRunning {
		run.mu.Unlock()
		return nil, ErrAlreadyStreaming
	}
	runCtx, cancel := context.WithCancel(ctx)
	run.cancel = cancel
	run.events = make(chan any, 64)
	events := run.events
	run.mu.Unlock()

	go r.runGraph(runCtx, run)
	return events, nil
}

// Resume clears the human-review pause and re-enters the graph at
// execute_sql, the only resumable stage. Returns ErrRunNotPaused otherwise.
func (r *Runner) Resume(ctx context.Context, runID string) (<-chan any, error) {
	run, err := r.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.StatusValue() != StatusPaused {
		return nil, ErrRunNotPaused
	}

	run.Context.RequiresHumanIntervention = false
	run.Context.CurrentStage = migration.StageExecuteSQL
	run.Context.Touch(time.Now())

	return r.Stream(ctx, runID)
}

func (r *Runner) runGraph(ctx context.Context, run *Run) {
	defer close(run.events)

	run.setStatus(StatusRunning)
	r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningStart, ID: run.ID})
	r.emitWorkflowStatus(run, "started")

	lastActivity := len(run.Context.ActivityLog)

	for step := 0; step < maxGraphSteps; step++ {
		select {
		case <-ctx.Done():
			run.setStatus(StatusCancelled)
			r.emitWorkflowStatus(run, "cancelled")
			r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: run.ID})
			return
		default:
		}

		stage := run.Context.CurrentStage
		if stage == migration.StageCompleted {
			run.setStatus(StatusCompleted)
			lastActivity = r.drainActivity(run, lastActivity)
			r.emitWorkflowStatus(run, "completed")
			r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: run.ID})
			return
		}
		if stage == migration.StageIdle {
			run.Context.CurrentStage = migration.StageInitProject
			continue
		}

		pty := r.resolvePTY(run.Context.SessionID)

		if stage != migration.StageError {
			r.runNode(ctx, run, stage, pty)
			lastActivity = r.drainActivity(run, lastActivity)
			r.emitWorkflowStatus(run, "node_completed")
		}

		decision, reasoning := r.deps.Supervisor.Evaluate(ctx, run.Context, pty)
		lastActivity = r.drainActivity(run, lastActivity)
		r.emit(run, events.DataPayload{
			Type: "data-" + events.DataSupervisorReasoning,
			Data: events.SupervisorReasoningData{
				RunID: run.ID, Stage: string(run.Context.CurrentStage),
				Decision: string(decision), Reasoning: reasoning,
			},
		})

		if run.Context.CurrentStage == migration.StageCompleted {
			// Finalize already drove the context to completion; let the
			// next iteration's top-of-loop check emit the terminal event.
			continue
		}

		if decision == supervisor.DecisionHumanReview && run.Context.RequiresHumanIntervention {
			run.setStatus(StatusPaused)
			r.emit(run, events.DataPayload{
				Type: "data-" + events.DataHumanReviewRequired,
				Data: events.HumanReviewRequiredData{
					RunID: run.ID, Reason: run.Context.HumanInterventionReason,
					MissingObjects: run.Context.MissingObjects, ResumeFrom: string(migration.StageExecuteSQL),
				},
			})
			r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: run.ID})
			return
		}

		switch decision {
		case supervisor.DecisionAbort:
			run.setStatus(StatusFailed)
			r.emitWorkflowStatus(run, "aborted")
			r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: run.ID})
			return
		case supervisor.DecisionHumanReview:
			run.Context.CurrentStage = migration.StageHumanReview
		case supervisor.DecisionSelfHeal:
			run.Context.CurrentStage = migration.StageSelfHeal
		case supervisor.DecisionFinalize:
			run.Context.CurrentStage = migration.StageFinalize
		default: // DecisionProceed
			next := supervisor.NaturalNext(run.Context.CurrentStage)
			if next == "__end__" {
				run.Context.CurrentStage = migration.StageCompleted
			} else {
				run.Context.CurrentStage = next
			}
		}
	}

	run.setStatus(StatusFailed)
	r.emitWorkflowStatus(run, "step_limit_exceeded")
	r.emit(run, events.ReasoningPayload{Type: events.TypeReasoningEnd, ID: run.ID})
}

// runNode dispatches to the stage function for stage. StageError and
// StageCompleted have no node (handled by the caller).
func (r *Runner) runNode(ctx context.Context, run *Run, stage migration.Stage, pty migration.PTYWriter) {
	c := run.Context
	switch stage {
	case migration.StageInitProject:
		migration.InitProject(ctx, c, r.deps.CLIRunner, pty, r.deps.ProjectsRoot)
	case migration.StageAddSourceCode:
		migration.AddSourceCode(ctx, c, r.deps.CLIRunner, pty)
	case migration.StageApplySchemaMapping:
		migration.ApplySchemaMapping(c)
	case migration.StageConvertCode:
		migration.ConvertCode(ctx, c, r.deps.CLIRunner, pty, r.deps.BuildReportContext)
	case migration.StageExecuteSQL:
		migration.ExecuteSQL(ctx, c, r.deps.SQLExecutor, pty)
	case migration.StageSelfHeal:
		migration.SelfHeal(c, r.deps.Healer, r.deps.BuildReportContext, pty)
	case migration.StageValidate:
		migration.Validate(c, r.deps.Validator, pty)
	case migration.StageHumanReview:
		migration.HumanReview(c, pty)
	case migration.StageFinalize:
		migration.Finalize(c, r.deps.OutputsRoot, pty)
	default:
		r.log.Warn("no node for stage, treating as error", "stage", stage)
		c.Errors = append(c.Errors, fmt.Sprintf("no stage node for %q", stage))
		c.CurrentStage = migration.StageError
	}
}

func (r *Runner) resolvePTY(sessionID string) migration.PTYWriter {
	if sessionID == "" || r.deps.PTYRegistry == nil {
		return nil
	}
	session, err := r.deps.PTYRegistry.Get(sessionID)
	if err != nil {
		return nil
	}
	return session
}

func (r *Runner) emit(run *Run, payload any) {
	select {
	case run.events <- payload:
	default:
		r.log.Warn("dropping workflow event, consumer too slow", "run_id", run.ID)
	}
}

func (r *Runner) emitWorkflowStatus(run *Run, status string) {
	r.emit(run, events.DataPayload{
		Type: "data-" + events.DataWorkflowStatus,
		Data: events.WorkflowStatusData{
			RunID: run.ID, Stage: string(run.Context.CurrentStage),
			StageIndex: stageIndex(run.Context.CurrentStage), Status: status,
		},
	})
}

// drainActivity emits every activity-log entry appended since from as a
// reasoning-delta, returning the new high-water mark.
func (r *Runner) drainActivity(run *Run, from int) int {
	c := run.Context
	for i := from; i < len(c.ActivityLog); i++ {
		entry := c.ActivityLog[i]
		r.emit(run, events.ReasoningPayload{
			Type: events.TypeReasoningDelta, ID: run.ID, Delta: entry.Message + "\n",
		})
	}
	return len(c.ActivityLog)
}

var _ = ptyio.ErrSessionNotFound // referenced transitively via PTYRegistry.Get's error type

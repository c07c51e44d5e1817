package supervisor

import (
	"context"
	"errors"
	"testing"

	"github.com/scaiflow/orchestrator/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func newContextAtStage(stage migration.Stage) *migration.Context {
	c := migration.NewContext("run-1", "acme")
	c.CurrentStage = stage
	return c
}

func TestEvaluateAutoRoutesErrorState(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageError)

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionFinalize, decision)
}

func TestEvaluateAutoRoutesCompletedState(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageCompleted)

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionProceed, decision)
}

func TestEvaluatePausesOnHumanReview(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageHumanReview)
	c.RequiresHumanIntervention = true

	decision, reasoning := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionHumanReview, decision)
	assert.Contains(t, reasoning, "Human intervention")
}

func TestEvaluateNilLLMUsesDeterministicFallback(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageExecuteSQL)
	c.ExecutionPassed = true

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionProceed, decision)
	assert.Equal(t, string(DecisionProceed), c.SupervisorDecision)
	require.Len(t, s.DecisionHistory(), 1)
}

func TestEvaluateMissingObjectsRouteToHumanReview(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageExecuteSQL)
	c.MissingObjects = []string{"CUSTOMERS"}

	decision, reasoning := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionHumanReview, decision)
	assert.Contains(t, reasoning, "CUSTOMERS")
}

func TestEvaluateValidationFailureExhaustedRetriesFinalizes(t *testing.T) {
	s := New(nil)
	c := newContextAtStage(migration.StageValidate)
	c.SelfHealIteration = 5
	c.MaxSelfHealIterations = 5

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionFinalize, decision)
}

func TestEvaluateUsesLLMDecisionWhenValid(t *testing.T) {
	llm := &fakeCompleter{response: `{"decision": "self_heal", "reasoning": "execution failed"}`}
	s := New(llm)
	c := newContextAtStage(migration.StageExecuteSQL)

	decision, reasoning := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionSelfHeal, decision)
	assert.Equal(t, "execution failed", reasoning)
}

func TestEvaluateStripsMarkdownFence(t *testing.T) {
	llm := &fakeCompleter{response: "```json\n{\"decision\": \"proceed\", \"reasoning\": \"ok\"}\n```"}
	s := New(llm)
	c := newContextAtStage(migration.StageInitProject)

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionProceed, decision)
}

func TestEvaluateInvalidDecisionDefaultsToProceed(t *testing.T) {
	llm := &fakeCompleter{response: `{"decision": "not_a_real_decision", "reasoning": "??"}`}
	s := New(llm)
	c := newContextAtStage(migration.StageInitProject)

	decision, _ := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionProceed, decision)
}

func TestEvaluateLLMErrorFallsBackDeterministically(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("model unavailable")}
	s := New(llm)
	c := newContextAtStage(migration.StageExecuteSQL)
	c.ExecutionPassed = true

	decision, reasoning := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionProceed, decision)
	assert.Contains(t, reasoning, "LLM unavailable")
}

func TestEvaluateUnparsableResponseFallsBackToTextSearch(t *testing.T) {
	llm := &fakeCompleter{response: "I think we should self_heal here because of the syntax error."}
	s := New(llm)
	c := newContextAtStage(migration.StageExecuteSQL)

	decision, reasoning := s.Evaluate(context.Background(), c, nil)

	assert.Equal(t, DecisionSelfHeal, decision)
	assert.Contains(t, reasoning, "Parsed from text")
}

func TestNaturalNextTable(t *testing.T) {
	assert.Equal(t, migration.StageAddSourceCode, NaturalNext(migration.StageInitProject))
	assert.Equal(t, migration.Stage("__end__"), NaturalNext(migration.StageFinalize))
}

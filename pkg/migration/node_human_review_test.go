package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanReviewSetsReasonFromMissingObjects(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.MissingObjects = []string{"CUSTOMERS"}

	HumanReview(c, nil)

	assert.Equal(t, StageHumanReview, c.CurrentStage)
	assert.True(t, c.RequiresHumanIntervention)
	assert.Contains(t, c.HumanInterventionReason, "CUSTOMERS")
}

func TestHumanReviewPreservesExistingReason(t *testing.T) {
	c := NewContext("run-1", "acme")
	c.HumanInterventionReason = "manual pause requested"

	HumanReview(c, nil)

	assert.Equal(t, "manual pause requested", c.HumanInterventionReason)
}

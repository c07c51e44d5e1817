package migration

import (
	"strings"
	"time"
)

// HumanReview pauses the workflow, marking it as requiring user
// intervention; the workflow runner is responsible for emitting a blocking
// event and waiting for resume via the API. Ported from human_review_node.
func HumanReview(c *Context, pty PTYWriter) *Context {
	if IsErrorState(c) {
		return c
	}

	LogEvent(c, "info", "Human review requested", nil)
	PTYEcho(pty, "[PAUSED] Waiting for human review...")

	c.CurrentStage = StageHumanReview
	c.RequiresHumanIntervention = true
	c.Touch(time.Now())

	if len(c.MissingObjects) > 0 {
		reason := "Missing objects: " + strings.Join(c.MissingObjects, ", ") + ". Upload DDL to continue."
		if c.HumanInterventionReason == "" {
			c.HumanInterventionReason = reason
		}
		PTYEcho(pty, "  Reason: "+reason)
	} else if c.HumanInterventionReason != "" {
		PTYEcho(pty, "  Reason: "+c.HumanInterventionReason)
	}

	return c
}

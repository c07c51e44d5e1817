package chatagent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutputPassesShortOutputThrough(t *testing.T) {
	assert.Equal(t, "short output", truncateOutput("short output"))
}

func TestTruncateOutputElidesTheMiddleOfLongOutput(t *testing.T) {
	long := strings.Repeat("a", 1500) + strings.Repeat("b", 3000) + strings.Repeat("c", 750)
	got := truncateOutput(long)

	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 1500)))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("c", 750)))
	assert.Contains(t, got, "…(truncated)…")
	assert.Less(t, len(got), len(long))
}

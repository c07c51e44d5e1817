package events

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopFlusher struct{ flushed int }

func (f *noopFlusher) Flush() { f.flushed++ }

func TestFormatterEmit(t *testing.T) {
	var buf bytes.Buffer
	fl := &noopFlusher{}
	f := NewFormatter(&buf, fl)

	err := f.Emit(StartPayload{Type: TypeStart, MessageID: "msg-1"})
	require.NoError(t, err)

	assert.Equal(t, "data: {\"type\":\"start\",\"messageId\":\"msg-1\"}\n\n", buf.String())
	assert.Equal(t, 1, fl.flushed)
}

func TestFormatterEmitData(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, &noopFlusher{})

	err := f.EmitData(DataWorkflowStatus, WorkflowStatusData{
		RunID: "run-1", Stage: "convert_code", StageIndex: 4, Status: "completed",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "data: "))
	assert.Contains(t, out, `"type":"data-workflow-status"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
}

func TestFormatterPingAndDone(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, &noopFlusher{})

	require.NoError(t, f.Ping())
	require.NoError(t, f.Done())

	assert.Equal(t, ": ping\n\ndata: [DONE]\n\n", buf.String())
}

func TestSetHeaders(t *testing.T) {
	h := http.Header{}
	SetHeaders(h)

	assert.Equal(t, "text/event-stream", h.Get("Content-Type"))
	assert.Equal(t, "no-cache", h.Get("Cache-Control"))
	assert.Equal(t, "no", h.Get("X-Accel-Buffering"))
	assert.Equal(t, "v1", h.Get("x-vercel-ai-ui-message-stream"))
}

func TestPumpRelaysEventsThenDone(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, &noopFlusher{})

	events := make(chan any, 2)
	events <- StartPayload{Type: TypeStart, MessageID: "m1"}
	events <- TextPayload{Type: TypeTextDelta, ID: "m1", Delta: "hi"}
	close(events)

	err := f.Pump(context.Background(), events, 50*time.Millisecond)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"messageId":"m1"`)
	assert.Contains(t, out, `"delta":"hi"`)
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))
}

func TestPumpEmitsPingOnIdle(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, &noopFlusher{})

	events := make(chan any)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := f.Pump(ctx, events, 10*time.Millisecond)
	require.Error(t, err) // context deadline -> Abort returns ctx.Err()

	assert.Contains(t, buf.String(), ": ping\n\n")
	assert.Contains(t, buf.String(), `"type":"abort"`)
}

func TestPumpAbortsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, &noopFlusher{})

	events := make(chan any)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Pump(ctx, events, time.Second)
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"type":"abort"`)
}

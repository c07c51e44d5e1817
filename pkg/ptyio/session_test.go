package ptyio

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	input := []byte("\x1b[31mred\x1b[0m text\x1b]0;title\x07done")
	got := StripANSI(input)
	assert.Equal(t, "red text done", string(got))
}

func TestTrimFirstLine(t *testing.T) {
	assert.Equal(t, "hello world", trimFirstLine([]byte("echo hello ; echo MARKER\nhello world\n")))
	assert.Equal(t, "", trimFirstLine([]byte("just one line")))
}

func spawnBashSession(t *testing.T) *Session {
	t.Helper()
	s := New(80, 24)
	require.NoError(t, s.Spawn("/bin/bash", nil, "", nil))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// drainReader pumps Read in a loop the way the WebSocket handler would,
// simulating the single-reader invariant.
func drainReader(ctx context.Context, s *Session) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, _ := s.Read(buf)
		_ = n
	}
}

func TestExecuteCommandReturnsOutput(t *testing.T) {
	s := spawnBashSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go drainReader(ctx, s)

	out, err := s.ExecuteCommand(context.Background(), "echo hello-from-pty", 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "hello-from-pty")
}

func TestExecuteCommandNotAlive(t *testing.T) {
	s := New(80, 24)
	_, err := s.ExecuteCommand(context.Background(), "echo hi", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAlive)
}

func TestExecuteCommandMarkerNeverLeaksToReader(t *testing.T) {
	s := spawnBashSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen strings.Builder
	go func() {
		buf := make([]byte, 4096)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, _ := s.Read(buf)
			if n > 0 {
				seen.Write(buf[:n])
			}
		}
	}()

	_, err := s.ExecuteCommand(context.Background(), "echo marker-leak-check", 5*time.Second)
	require.NoError(t, err)

	assert.NotContains(t, seen.String(), "__AGENT_DONE_")
}

func TestIsAlive(t *testing.T) {
	s := spawnBashSession(t)
	assert.True(t, s.IsAlive())

	require.NoError(t, s.Close())
	assert.False(t, s.IsAlive())
}

func TestResize(t *testing.T) {
	s := spawnBashSession(t)
	require.NoError(t, s.Resize(100, 40))
}

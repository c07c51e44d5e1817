package upstream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	pingErr   error
	pingCalls int
	closed    bool
}

func (c *fakeConn) Ping() error {
	c.pingCalls++
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestCreateOrReplaceClosesPrior(t *testing.T) {
	m := NewManager(time.Hour)

	first := &fakeConn{}
	m.CreateOrReplace("sess-1", first, ModelConfig{Model: "claude-4-sonnet"})

	second := &fakeConn{}
	m.CreateOrReplace("sess-1", second, ModelConfig{Model: "claude-4-opus"})

	assert.True(t, first.closed)
	assert.False(t, second.closed)

	session, err := m.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "claude-4-opus", session.Model.Model)
}

func TestGetMissingSession(t *testing.T) {
	m := NewManager(time.Hour)

	_, err := m.Get("does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestGetExpiredSessionEvicted(t *testing.T) {
	m := NewManager(-time.Minute) // already expired on creation

	conn := &fakeConn{}
	m.CreateOrReplace("sess-2", conn, ModelConfig{})

	_, err := m.Get("sess-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, conn.closed)

	_, err = m.Get("sess-2")
	require.Error(t, err)
}

func TestTouchExtendsExpiry(t *testing.T) {
	m := NewManager(time.Hour)
	m.CreateOrReplace("sess-3", &fakeConn{}, ModelConfig{})

	before, err := m.Get("sess-3")
	require.NoError(t, err)
	firstExpiry := before.ExpiresAt

	time.Sleep(time.Millisecond)
	require.NoError(t, m.Touch("sess-3"))

	after, err := m.Get("sess-3")
	require.NoError(t, err)
	assert.True(t, after.ExpiresAt.After(firstExpiry))
}

func TestValidateEvictsOnFailure(t *testing.T) {
	m := NewManager(time.Hour)
	conn := &fakeConn{pingErr: errors.New("connection reset")}
	m.CreateOrReplace("sess-4", conn, ModelConfig{})

	err := m.Validate("sess-4")
	require.Error(t, err)
	assert.Equal(t, 1, conn.pingCalls)
	assert.True(t, conn.closed)

	_, err = m.Get("sess-4")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestValidateSucceeds(t *testing.T) {
	m := NewManager(time.Hour)
	conn := &fakeConn{}
	m.CreateOrReplace("sess-5", conn, ModelConfig{})

	require.NoError(t, m.Validate("sess-5"))
	assert.Equal(t, 1, conn.pingCalls)
}

func TestDisconnect(t *testing.T) {
	m := NewManager(time.Hour)
	conn := &fakeConn{}
	m.CreateOrReplace("sess-6", conn, ModelConfig{})

	require.NoError(t, m.Disconnect("sess-6"))
	assert.True(t, conn.closed)

	_, err := m.Get("sess-6")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestDisconnectMissing(t *testing.T) {
	m := NewManager(time.Hour)

	err := m.Disconnect("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestBuildStatus(t *testing.T) {
	m := NewManager(time.Hour)
	m.CreateOrReplace("sess-7", &fakeConn{}, ModelConfig{Model: "claude-4-sonnet"})

	status, err := m.BuildStatus("sess-7")
	require.NoError(t, err)
	assert.Equal(t, "sess-7", status.ID)
	assert.Equal(t, "claude-4-sonnet", status.Model)
}

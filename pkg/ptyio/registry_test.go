package ptyio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := New(80, 24)

	r.Register("sess-1", s)

	got, err := r.Get("sess-1")
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestRegistryReplaceClosesPrior(t *testing.T) {
	r := NewRegistry()
	first := New(80, 24)
	second := New(80, 24)

	r.Register("sess-2", first)
	r.Register("sess-2", second)

	got, err := r.Get("sess-2")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.True(t, first.closed)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	s := New(80, 24)
	r.Register("sess-3", s)

	r.Unregister("sess-3")

	_, err := r.Get("sess-3")
	require.Error(t, err)
	assert.True(t, s.closed)
}

func TestRegistryUnregisterMissingIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("does-not-exist") // must not panic
}

package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/purity-go/internal/errors"
	"github.com/wagiedev/purity-go/internal/fudi"
)

func nopHandler(context.Context, *Conn, []fudi.Atom) error { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("obj", HandlerFunc(nopHandler)))

	h, ok := r.Lookup("obj")
	require.True(t, ok)
	require.NotNil(t, h)

	_, ok = r.Lookup("msg")
	require.False(t, ok)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry()

	require.ErrorIs(t, r.Register("", HandlerFunc(nopHandler)), errors.ErrInvalidHandler)
	require.ErrorIs(t, r.Register("obj", nil), errors.ErrInvalidHandler)

	var fn HandlerFunc
	require.ErrorIs(t, r.Register("obj", fn), errors.ErrInvalidHandler)

	require.Empty(t, r.Selectors())
}

func TestRegistry_DuplicateLastWins(t *testing.T) {
	r := NewRegistry()

	var called string

	require.NoError(t, r.Register("obj", HandlerFunc(func(context.Context, *Conn, []fudi.Atom) error {
		called = "first"

		return nil
	})))
	require.NoError(t, r.Register("obj", HandlerFunc(func(context.Context, *Conn, []fudi.Atom) error {
		called = "second"

		return nil
	})))

	h, ok := r.Lookup("obj")
	require.True(t, ok)
	require.NoError(t, h.HandleMessage(t.Context(), nil, nil))
	require.Equal(t, "second", called)
	require.Equal(t, []string{"obj"}, r.Selectors())
}

func TestRegistry_Freeze(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b", HandlerFunc(nopHandler)))
	require.NoError(t, r.Register("a", HandlerFunc(nopHandler)))

	r.Freeze()

	require.True(t, r.Frozen())
	require.ErrorIs(t, r.Register("c", HandlerFunc(nopHandler)), errors.ErrRegistryFrozen)
	require.Equal(t, []string{"a", "b"}, r.Selectors())
}

package purity

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := WithClient(ctx, func(_ Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_CallbackError(t *testing.T) {
	pd := newFakePd(t)

	want := stderrors.New("boom")

	var seen Client

	err := WithClient(t.Context(), func(c Client) error {
		seen = c

		return want
	}, pd.options()...)
	require.ErrorIs(t, err, want)

	require.NotNil(t, seen)
	assert.Equal(t, StateClosed, seen.State(), "client should be closed after the callback")
}

func TestWithClient_Sends(t *testing.T) {
	pd := newFakePd(t)

	err := WithClient(t.Context(), func(c Client) error {
		return c.Send(t.Context(), "obj", String("print"))
	}, pd.options()...)
	require.NoError(t, err)

	assert.Equal(t, "obj print", pd.expect().String())
}

func TestWithClient_StartFailure(t *testing.T) {
	err := WithClient(t.Context(), func(Client) error {
		t.Error("callback should not be called when start fails")

		return nil
	}, WithSendPort(0))
	require.ErrorContains(t, err, "failed to start client")
}

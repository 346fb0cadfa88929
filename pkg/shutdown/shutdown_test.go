package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdownRunsInReverseOrderOnce(t *testing.T) {
	m := NewManager()
	var order []string
	m.OnShutdown("store", func(context.Context) error { order = append(order, "store"); return nil })
	m.OnShutdown("http", func(context.Context) error { order = append(order, "http"); return nil })

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	require.Equal(t, []string{"http", "store"}, order)
}

func TestShutdownKeepsGoingAfterError(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")
	ran := false
	m.OnShutdown("store", func(context.Context) error { ran = true; return nil })
	m.OnShutdown("http", func(context.Context) error { return boom })

	require.ErrorIs(t, m.Shutdown(context.Background()), boom)
	require.True(t, ran)
}

func TestShutdownSkipsAfterTimeout(t *testing.T) {
	m := NewManager()
	ran := false
	m.OnShutdown("store", func(context.Context) error { ran = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Shutdown(ctx), context.Canceled)
	require.False(t, ran)
}

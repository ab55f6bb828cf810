package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginKey(t *testing.T) {
	require.Equal(t, "login:alice", LoginKey("  Alice "))
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	r, err := l.Allow(ctx, "login:alice")
	require.NoError(t, err)
	require.True(t, r.Allowed)
	require.Equal(t, int64(1), r.Remaining)

	r, err = l.Allow(ctx, "login:alice")
	require.NoError(t, err)
	require.True(t, r.Allowed)
	require.Zero(t, r.Remaining)

	r, err = l.Allow(ctx, "login:alice")
	require.NoError(t, err)
	require.False(t, r.Allowed)
	require.Equal(t, int64(3), r.CurrentHits)
	require.Positive(t, r.RetryAfter)
	require.LessOrEqual(t, r.RetryAfter, time.Minute)

	// otra clave, otro contador
	r, err = l.Allow(ctx, "login:bob")
	require.NoError(t, err)
	require.True(t, r.Allowed)
}

func TestMemoryLimiter_WindowExpires(t *testing.T) {
	l := NewMemoryLimiter(1, 30*time.Millisecond)
	ctx := context.Background()

	r, _ := l.Allow(ctx, "k")
	require.True(t, r.Allowed)
	r, _ = l.Allow(ctx, "k")
	require.False(t, r.Allowed)

	time.Sleep(50 * time.Millisecond)
	r, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, r.Allowed)
}

func TestMemoryLimiter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryLimiter(1, time.Minute).Allow(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestResult_RetryAfterFallback(t *testing.T) {
	r := result(5, 1, -1, 1500*time.Millisecond)
	require.False(t, r.Allowed)
	require.Equal(t, 2*time.Second, r.RetryAfter)
}

func TestNoop(t *testing.T) {
	r, err := Noop{}.Allow(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, r.Allowed)
}

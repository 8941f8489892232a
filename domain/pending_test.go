package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingSendRegistry_RecordAndForget(t *testing.T) {
	registry := NewPendingSendRegistry(10 * time.Second)
	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	registry.Record("hello", at)

	got, ok := registry.SentAt("hello")
	require.True(t, ok)
	require.Equal(t, at, got)

	registry.Forget("hello")
	_, ok = registry.SentAt("hello")
	require.False(t, ok)
}

func TestPendingSendRegistry_Prune_DropsOnlyStaleEntries(t *testing.T) {
	registry := NewPendingSendRegistry(10 * time.Second)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	registry.Record("stale", now.Add(-11*time.Second))
	registry.Record("fresh", now.Add(-2*time.Second))

	registry.Prune(now)

	require.Equal(t, 1, registry.Len())
	_, ok := registry.SentAt("fresh")
	require.True(t, ok)
	_, ok = registry.SentAt("stale")
	require.False(t, ok)
}

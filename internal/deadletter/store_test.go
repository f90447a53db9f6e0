package deadletter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deadletter.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndPendingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Record(ctx, "job-1", "catalog unreachable", []byte("frame-bytes"), 2461250.5))

	entries, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "job-1", entries[0].JobID)
	assert.Equal(t, "catalog unreachable", entries[0].Reason)
	assert.Equal(t, []byte("frame-bytes"), entries[0].Frame)
	assert.Equal(t, 2461250.5, entries[0].JDObs)
	assert.False(t, entries[0].Acked)
	assert.Equal(t, 0, entries[0].RetryCount)
}

func TestAckRemovesEntryFromPending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Record(ctx, "job-2", "timeout", nil, 0))
	entries, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.Ack(ctx, entries[0].ID))

	remaining, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestBumpRetryIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Record(ctx, "job-3", "5xx", nil, 0))
	entries, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.BumpRetry(ctx, entries[0].ID))
	require.NoError(t, s.BumpRetry(ctx, entries[0].ID))

	entries, err = s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].RetryCount)
}

func TestPendingRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, "job", "reason", nil, 0))
	}

	entries, err := s.Pending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

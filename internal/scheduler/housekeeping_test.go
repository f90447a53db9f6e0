package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/deadletter"
)

func openTestDeadLetterStore(t *testing.T) *deadletter.Store {
	t.Helper()
	s, err := deadletter.Open(filepath.Join(t.TempDir(), "deadletter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRetryDeadLettersAcksOnSuccess(t *testing.T) {
	var uploads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploads++
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cat, err := catalog.New(srv.URL, "", "")
	require.NoError(t, err)

	store := openTestDeadLetterStore(t)
	require.NoError(t, store.Record(context.Background(), "job-1", "catalog unreachable", []byte("frame"), 2461250.0))

	h, err := NewHousekeeping(store, cat, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown() })

	h.retryDeadLetters()

	assert.Equal(t, 1, uploads)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryDeadLettersBumpsRetryCountOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cat, err := catalog.New(srv.URL, "", "")
	require.NoError(t, err)

	store := openTestDeadLetterStore(t)
	require.NoError(t, store.Record(context.Background(), "job-2", "catalog unreachable", []byte("frame"), 2461250.0))

	h, err := NewHousekeeping(store, cat, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown() })

	h.retryDeadLetters()

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestReportDeadLetterDepthDoesNotPanicWhenEmpty(t *testing.T) {
	store := openTestDeadLetterStore(t)
	cat, err := catalog.New("http://127.0.0.1:0", "", "")
	require.NoError(t, err)

	h, err := NewHousekeeping(store, cat, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown() })

	assert.NotPanics(t, h.reportDeadLetterDepth)
}

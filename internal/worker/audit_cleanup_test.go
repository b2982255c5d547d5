package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/repository/mocks"
)

func TestCleanupUsesRetention(t *testing.T) {
	repo := &mocks.AuditRepository{}
	repo.On("Cleanup", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		age := time.Since(cutoff)
		return age > 89*24*time.Hour && age < 91*24*time.Hour
	})).Return(int64(12), nil)

	w := NewAuditCleanupWorker(repo, 90, time.Hour)
	n, err := w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}

func TestCleanupError(t *testing.T) {
	repo := &mocks.AuditRepository{}
	repo.On("Cleanup", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)

	_, err := NewAuditCleanupWorker(repo, 30, time.Hour).Cleanup(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStartStopsOnCancel(t *testing.T) {
	repo := &mocks.AuditRepository{}
	repo.On("Cleanup", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewAuditCleanupWorker(repo, 30, 5*time.Millisecond).Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

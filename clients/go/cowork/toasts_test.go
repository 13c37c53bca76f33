package cowork

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestCompletedToastWithinWindow(t *testing.T) {
	now := base
	completedAt := now.Add(-30 * time.Second)
	accepted := now.Add(-time.Hour)
	sess := Session{ID: "s1", Status: StatusCompleted, AcceptedAt: &accepted, CompletedAt: &completedAt, CompletedAck: true}

	guard := NewToastGuard(fixedClock(now))
	toasts := guard.Evaluate([]Session{sess})

	require.Len(t, toasts, 1)
	assert.Equal(t, ToastCompleted, toasts[0].Text)
	assert.Equal(t, "s1", toasts[0].SessionID)

	// Re-evaluating the same session fires nothing.
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestCompletedToastOutsideWindowSilent(t *testing.T) {
	now := base
	completedAt := now.Add(-2 * time.Minute)
	sess := Session{ID: "s1", Status: StatusCompleted, CompletedAt: &completedAt, CompletedAck: true}

	guard := NewToastGuard(fixedClock(now))
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestCompletedWithoutAckSilent(t *testing.T) {
	now := base
	completedAt := now.Add(-time.Second)
	sess := Session{ID: "s1", Status: StatusCompleted, CompletedAt: &completedAt, CompletedAck: false}

	guard := NewToastGuard(fixedClock(now))
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestDeclinedToastOnce(t *testing.T) {
	sess := Session{ID: "s1", Status: StatusDeclined}
	guard := NewToastGuard(fixedClock(base))

	toasts := guard.Evaluate([]Session{sess})
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastDeclined, toasts[0].Text)

	assert.Empty(t, guard.Evaluate([]Session{sess}))
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestCancelledInviteToast(t *testing.T) {
	// Never accepted: the invite was withdrawn.
	sess := Session{ID: "s1", Status: StatusCancelled}
	guard := NewToastGuard(fixedClock(base))

	toasts := guard.Evaluate([]Session{sess})
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastCancelledInvite, toasts[0].Text)
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestMissedToast(t *testing.T) {
	accepted := base
	sess := Session{ID: "s1", Status: StatusCancelled, AcceptedAt: &accepted}
	guard := NewToastGuard(fixedClock(base))

	toasts := guard.Evaluate([]Session{sess})
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastMissed, toasts[0].Text)
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestCancelledAfterCompletionHandshakeSilent(t *testing.T) {
	accepted := base
	sess := Session{ID: "s1", Status: StatusCancelled, AcceptedAt: &accepted, CompletedAck: true}
	guard := NewToastGuard(fixedClock(base))
	assert.Empty(t, guard.Evaluate([]Session{sess}))
}

func TestPendingAndActiveNeverToast(t *testing.T) {
	accepted := base
	guard := NewToastGuard(fixedClock(base))
	sessions := []Session{
		{ID: "s1", Status: StatusPending},
		{ID: "s2", Status: StatusActive, AcceptedAt: &accepted},
	}
	assert.Empty(t, guard.Evaluate(sessions))
}

func TestMarkerSetBounded(t *testing.T) {
	m := newMarkerSet(3)

	for i := 0; i < 3; i++ {
		assert.True(t, m.mark(fmt.Sprintf("id%d", i)))
	}
	assert.False(t, m.mark("id0"))

	// Fourth insert evicts the oldest.
	assert.True(t, m.mark("id3"))
	assert.False(t, m.has("id0"))
	assert.True(t, m.has("id1"))
	assert.True(t, m.has("id3"))
}

package replsup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectChanges(t *testing.T, ch <-chan StateChange, n int) []StateChange {
	t.Helper()
	var got []StateChange
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case c, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d changes", len(got), n)
			}
			got = append(got, c)
		case <-deadline:
			t.Fatalf("timed out after %d of %d changes", len(got), n)
		}
	}
	return got
}

func TestWatchStreamsTransitions(t *testing.T) {
	s, ml, _ := newTestSupervisor(t)

	ch, cleanup, err := s.Watch(context.Background())
	require.NoError(t, err)

	s.Start()
	ml.Connect(&MockWorker{})

	// Rapid intermediate states may be coalesced into one observed
	// change, so assert the chain rather than each hop: it begins at
	// Fresh, stays contiguous, and ends with the worker connected.
	var got []StateChange
	deadline := time.After(2 * time.Second)
	for len(got) == 0 || got[len(got)-1].Current != StateFreshRunning {
		select {
		case c, ok := <-ch:
			require.True(t, ok, "channel closed before the worker connected")
			got = append(got, c)
		case <-deadline:
			t.Fatalf("never observed the connected state; saw %v", got)
		}
	}
	require.Equal(t, StateFresh, got[0].Previous)
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1].Current, got[i].Previous, "gap in observed chain at %d: %v", i, got)
	}

	require.NoError(t, cleanup())
}

func TestWatchClosesOnCleanup(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	ch, cleanup, err := s.Watch(context.Background())
	require.NoError(t, err)
	require.NoError(t, cleanup())

	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cleanup")
	}
}

func TestWatchEndsOnDispose(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	ch, cleanup, err := s.Watch(context.Background())
	require.NoError(t, err)
	defer cleanup()

	s.Dispose()

	got := collectChanges(t, ch, 1)
	require.Equal(t, StateDisposed, got[0].Current)

	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel should close after disposal")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after disposal")
	}
}

func TestWaitForReturnsImmediatelyWhenAlready(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	kind, err := s.WaitFor(context.Background(), StateFresh)
	require.NoError(t, err)
	require.Equal(t, StateFresh, kind)
}

func TestWaitForBlocksUntilTarget(t *testing.T) {
	s, ml, _ := newTestSupervisor(t)

	done := make(chan StateKind, 1)
	go func() {
		kind, err := s.WaitFor(context.Background(), StateFreshRunning, StateRunning)
		if err != nil {
			return
		}
		done <- kind
	}()

	time.Sleep(50 * time.Millisecond)
	s.Start()
	ml.Connect(&MockWorker{})

	select {
	case kind := <-done:
		require.Equal(t, StateFreshRunning, kind)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFor did not return")
	}
}

func TestWaitForCancelled(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kind, err := s.WaitFor(ctx, StateRunning)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateUnknown, kind)
}

package replsup

import (
	"context"
	"sync"
	"time"

	"vawter.tech/stopper"
)

// StateChange reports one observed lifecycle transition
type StateChange struct {
	// Previous is the state the supervisor left
	Previous StateKind
	// Current is the state the supervisor entered
	Current StateKind
}

// WatchCleanupFunc stops a watch and releases its resources
type WatchCleanupFunc func() error

// watchPoll bounds each blocking wait inside the watch loop so context
// cancellation is noticed promptly
const watchPoll = 250 * time.Millisecond

// Watch streams lifecycle transitions until the context is cancelled or
// the cleanup function is called. Transitions are observed from the
// state cell, so rapid intermediate states may be coalesced: the channel
// carries every change the watcher saw, not every change that happened.
// The channel is closed when the watch ends.
func (s *Supervisor) Watch(ctx context.Context) (<-chan StateChange, WatchCleanupFunc, error) {
	ch := make(chan StateChange, 10)

	// The channel must close both when the watch is torn down and when
	// the goroutine exits on its own at disposal.
	var closeOnce sync.Once
	closeCh := func() { closeOnce.Do(func() { close(ch) }) }

	sctx := stopper.WithContext(ctx)
	sctx.Defer(closeCh)

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	// Snapshot before the goroutine runs so transitions made right
	// after Watch returns are not missed.
	last := s.cell.load()

	sctx.Go(func(sctx *stopper.Context) error {
		for !sctx.IsStopping() {
			next, err := s.cell.awaitChange(last, watchPoll)
			if err != nil {
				// Just the poll bound expiring; go around again.
				continue
			}
			change := StateChange{Previous: last.kind, Current: next.kind}
			last = next
			select {
			case ch <- change:
			case <-sctx.Stopping():
				return nil
			}
			if next.kind == StateDisposed {
				closeCh()
				return nil
			}
		}
		return nil
	})

	return ch, cleanup, nil
}

// WaitFor blocks until the supervisor reaches one of the given state
// kinds or the context is cancelled, returning the kind reached. With no
// kinds it waits for the next transition and returns the resulting kind.
func (s *Supervisor) WaitFor(ctx context.Context, kinds ...StateKind) (StateKind, error) {
	want := func(k StateKind) bool {
		if len(kinds) == 0 {
			return false
		}
		for _, target := range kinds {
			if k == target {
				return true
			}
		}
		return false
	}

	cur := s.cell.load()
	if want(cur.kind) {
		return cur.kind, nil
	}

	for {
		next, err := s.cell.awaitChange(cur, watchPoll)
		if err != nil {
			select {
			case <-ctx.Done():
				return StateUnknown, ctx.Err()
			default:
				continue
			}
		}
		if len(kinds) == 0 || want(next.kind) {
			return next.kind, nil
		}
		cur = next
		select {
		case <-ctx.Done():
			return StateUnknown, ctx.Err()
		default:
		}
	}
}

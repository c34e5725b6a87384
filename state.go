package replsup

// StateKind identifies the supervisor's current lifecycle state
type StateKind int

const (
	// StateUnknown is the zero value; never a live supervisor state
	StateUnknown StateKind = iota
	// StateFresh indicates no worker exists; never started or fully stopped
	StateFresh
	// StateStarting indicates a spawn was requested but the worker has
	// not connected yet
	StateStarting
	// StateFreshRunning indicates a connected worker that has never been
	// used for real work
	StateFreshRunning
	// StateRunning indicates a connected worker that has been used at
	// least once
	StateRunning
	// StateRestarting indicates a stop was requested with intent to
	// immediately start a new worker
	StateRestarting
	// StateStopping indicates a stop was requested with no restart intended
	StateStopping
	// StateDisposed is terminal; the supervisor is permanently inert
	StateDisposed
)

// StateKind string constants
const (
	stateFreshStr        = "fresh"
	stateStartingStr     = "starting"
	stateFreshRunningStr = "fresh-running"
	stateRunningStr      = "running"
	stateRestartingStr   = "restarting"
	stateStoppingStr     = "stopping"
	stateDisposedStr     = "disposed"
)

// String returns the string representation of the state kind
func (k StateKind) String() string {
	switch k {
	case StateFresh:
		return stateFreshStr
	case StateStarting:
		return stateStartingStr
	case StateFreshRunning:
		return stateFreshRunningStr
	case StateRunning:
		return stateRunningStr
	case StateRestarting:
		return stateRestartingStr
	case StateStopping:
		return stateStoppingStr
	case StateDisposed:
		return stateDisposedStr
	default:
		return "unknown"
	}
}

// lifeState is one immutable lifecycle state value. It is created inside
// a single transition attempt, published via the cell's compare-and-swap,
// and discarded once superseded; it is never mutated in place. The
// failures counter is meaningful only in StateStarting, and worker only
// in StateFreshRunning/StateRunning.
type lifeState struct {
	kind     StateKind
	failures int
	worker   WorkerHandle
}

func freshState() *lifeState { return &lifeState{kind: StateFresh} }
func startingState(failures int) *lifeState {
	return &lifeState{kind: StateStarting, failures: failures}
}
func freshRunningState(w WorkerHandle) *lifeState {
	return &lifeState{kind: StateFreshRunning, worker: w}
}
func runningState(w WorkerHandle) *lifeState { return &lifeState{kind: StateRunning, worker: w} }
func restartingState() *lifeState            { return &lifeState{kind: StateRestarting} }
func stoppingState() *lifeState              { return &lifeState{kind: StateStopping} }
func disposedState() *lifeState              { return &lifeState{kind: StateDisposed} }

/*
 * Transition table. Every operation follows the same shape: read the
 * current state, decide, compare-and-swap, and on CAS failure loop and
 * re-decide against whatever state is now current. A failed CAS always
 * means another thread completed a transition first, so re-delegating to
 * the fresh state (rather than retrying the stale decision) guarantees
 * forward progress and keeps stale logic from acting on a superseded
 * worker handle. Loops replace the recursion a delegation chain would
 * otherwise build up.
 */

// doStart ensures the worker is starting or running
func (s *Supervisor) doStart() {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFresh:
			if s.cell.compareAndSwap(cur, startingState(0)) {
				s.spawn()
				return
			}
		case StateStarting, StateFreshRunning, StateRunning, StateRestarting:
			// Already starting, running, or scheduled to start again.
			return
		case StateStopping:
			// Wait out the shutdown, then act on whatever follows.
			s.mustAwait(cur, "start blocked in stopping state")
		case StateDisposed:
			fatalf(ErrDisposed, "start called after dispose")
		}
	}
}

// doStop ensures the worker is stopping or not running
func (s *Supervisor) doStop() {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFresh, StateStopping:
			return
		case StateStarting:
			// A spawn is in flight; wait for it to settle either way.
			s.mustAwait(cur, "stop blocked in starting state")
		case StateFreshRunning, StateRunning:
			if s.cell.compareAndSwap(cur, stoppingState()) {
				s.signalQuit()
				return
			}
		case StateRestarting:
			// Cancel the pending auto-start; the quit signal was already sent.
			if s.cell.compareAndSwap(cur, stoppingState()) {
				return
			}
		case StateDisposed:
			fatalf(ErrDisposed, "stop called after dispose")
		}
	}
}

// doRestart ensures the worker is stopping or not running, to be started
// again. An unused fresh worker is not replaced unless force is set; it
// only re-announces readiness.
func (s *Supervisor) doRestart(force bool) {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFresh:
			s.doStart()
			return
		case StateStarting:
			s.mustAwait(cur, "restart blocked in starting state")
		case StateFreshRunning:
			if !force {
				// Replacing a never-used worker is wasted work; skip the
				// reset but still deliver the readiness notification the
				// caller is waiting on.
				s.interaction().Ready(s.launchSpec().WorkingDir)
				return
			}
			if s.transitionToRestarting(cur) {
				return
			}
		case StateRunning:
			if s.transitionToRestarting(cur) {
				return
			}
		case StateRestarting:
			return
		case StateStopping:
			if s.cell.compareAndSwap(cur, restartingState()) {
				return
			}
		case StateDisposed:
			fatalf(ErrDisposed, "restart called after dispose")
		}
	}
}

// transitionToRestarting moves a running worker into StateRestarting,
// announcing the reset and signalling the worker to quit. Returns false
// if another thread transitioned first.
func (s *Supervisor) transitionToRestarting(cur *lifeState) bool {
	if !s.cell.compareAndSwap(cur, restartingState()) {
		return false
	}
	s.interaction().Resetting()
	s.signalQuit()
	return true
}

// doDispose permanently shuts the supervisor down. Idempotent.
func (s *Supervisor) doDispose() {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFresh, StateRestarting, StateStopping:
			if s.cell.compareAndSwap(cur, disposedState()) {
				s.releaseResources()
				return
			}
		case StateStarting, StateFreshRunning, StateRunning:
			// An ordinary stop first; the next iteration finishes the job
			// from whatever state the stop settles into.
			s.doStop()
		case StateDisposed:
			return
		}
	}
}

// workerFor resolves the current worker handle, blocking while a spawn
// or restart is in flight. Returns nil if no worker is available within
// the startup timeout. The used flag marks this access as real work,
// demoting a fresh worker to used.
func (s *Supervisor) workerFor(used bool) WorkerHandle {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFresh, StateStopping:
			return nil
		case StateStarting:
			if _, err := s.cell.awaitChange(cur, s.startupTimeout); err != nil {
				return nil
			}
		case StateFreshRunning:
			if !used {
				return cur.worker
			}
			// First real use consumes freshness. Whether this CAS or a
			// racing one performs the demotion, the handle is resolved
			// against the state that results.
			s.cell.compareAndSwap(cur, runningState(cur.worker))
		case StateRunning:
			return cur.worker
		case StateRestarting:
			if _, err := s.cell.awaitChange(cur, s.startupTimeout); err != nil {
				return nil
			}
			// The restart may have settled back into Fresh without a new
			// spawn in flight; force one so a genuinely new worker is
			// guaranteed, then resolve against whatever is now current.
			s.doStart()
		case StateDisposed:
			fatalf(ErrDisposed, "worker lookup after dispose")
		}
	}
}

/*
 * Inbound lifecycle events. These arrive on the process-supervision
 * layer's thread and drive the machine from the other side.
 */

// WorkerConnected reports that the bidirectional channel to a newly
// spawned worker has been established. Called by the process-supervision
// layer.
func (s *Supervisor) WorkerConnected(h WorkerHandle) {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateStarting:
			if s.cell.compareAndSwap(cur, freshRunningState(h)) {
				s.log.Debug().Msg("worker connected")
				s.applyStartupConfig(h)
				s.interaction().Ready(s.launchSpec().WorkingDir)
				s.test().TestWorkerReady()
				return
			}
		case StateDisposed:
			// A connect racing a dispose; the worker was already told to quit.
			return
		default:
			fatalf(nil, "unexpected worker connect in state %v", cur.kind)
		}
	}
}

// WorkerQuit reports that the worker process terminated, for any reason.
// Called by the process-supervision layer.
func (s *Supervisor) WorkerQuit(status int) {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateFreshRunning, StateRunning:
			// No stop or restart was requested: the worker crashed or the
			// evaluated code called process-exit. Announce, then fall
			// through to the restarting transition on the next iteration.
			if s.cell.compareAndSwap(cur, restartingState()) {
				s.log.Debug().Int("status", status).Msg("worker quit unsolicited")
				s.interaction().CalledExit(status)
				s.interaction().Resetting()
			}
		case StateRestarting:
			if s.cell.compareAndSwap(cur, freshState()) {
				// This start is what actually spawns the replacement.
				s.doStart()
				return
			}
		case StateStopping:
			if s.cell.compareAndSwap(cur, freshState()) {
				return
			}
		case StateDisposed:
			// Quit of the final worker arriving after dispose; expected.
			return
		default:
			fatalf(nil, "unexpected worker quit in state %v", cur.kind)
		}
	}
}

// WorkerFailedToStart reports that a spawn or handshake failed before
// the worker connected. Called by the process-supervision layer. Retried
// up to the configured bound; past the bound the supervisor reverts to
// Fresh and reports the terminal cause instead.
func (s *Supervisor) WorkerFailedToStart(cause error) {
	for {
		cur := s.cell.load()
		switch cur.kind {
		case StateStarting:
			count := cur.failures + 1
			if count < s.maxFailures {
				if s.cell.compareAndSwap(cur, startingState(count)) {
					s.log.Debug().Err(cause).Int("failures", count).Msg("worker startup failed; retrying")
					s.spawn()
					return
				}
			} else {
				if s.cell.compareAndSwap(cur, freshState()) {
					s.log.Error().Err(cause).Int("failures", count).Msg("worker startup abandoned")
					s.interaction().WontStart(cause)
					return
				}
			}
		case StateDisposed:
			return
		default:
			fatalf(cause, "unexpected startup failure in state %v", cur.kind)
		}
	}
}

// mustAwait blocks until the state is no longer cur. The waits here back
// lifecycle operations that must not silently no-op, so the timeout is
// escalated: its expiry with the generous startup bound indicates a
// deeper problem than a slow spawn.
func (s *Supervisor) mustAwait(cur *lifeState, what string) {
	if _, err := s.cell.awaitChange(cur, s.startupTimeout); err != nil {
		fatalf(err, "%s", what)
	}
}

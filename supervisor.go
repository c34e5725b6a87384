package replsup

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Launcher is the process-supervision layer the supervisor drives. It
// owns process spawning and teardown; connection and termination events
// flow back through the LifecycleEvents methods on the Supervisor.
type Launcher interface {
	// Launch spawns a new worker process from the given spec. The
	// launcher reports the outcome asynchronously via WorkerConnected or
	// WorkerFailedToStart.
	Launch(spec LaunchSpec) error

	// SignalQuit asks the currently live worker process to exit. The
	// launcher reports the eventual termination via WorkerQuit.
	SignalQuit() error

	// Release frees any supervising resources. Called once, on dispose.
	Release() error
}

// LifecycleEvents is the inbound event surface the process-supervision
// layer drives. Supervisor implements it.
type LifecycleEvents interface {
	WorkerConnected(h WorkerHandle)
	WorkerQuit(status int)
	WorkerFailedToStart(cause error)
}

// launcherBinder is implemented by launchers that want the event sink
// handed to them at construction time
type launcherBinder interface {
	Bind(events LifecycleEvents)
}

// Supervisor manages a single worker process executing untrusted or
// experimental code on behalf of an interactive host. The worker may die
// or be deliberately restarted at any time; the supervisor keeps
// functioning and recovers automatically, exposing the worker's
// capabilities through delegating operations that degrade to neutral
// results whenever no worker is available.
//
// All methods are safe for concurrent use. Lifecycle operations return
// after triggering a transition; they do not wait for a new worker to
// become ready. Delegating operations block up to the startup timeout
// while a spawn or restart is in flight.
//
// Two sequential delegating calls may reach two different worker
// processes if a reset happens between them. Callers needing all calls
// to hit one worker must coordinate around Restart themselves; the
// supervisor deliberately does not promise cross-call affinity.
type Supervisor struct {
	cell     *cell
	launcher Launcher
	log      zerolog.Logger
	diag     DiagnosticSink

	startupTimeout time.Duration
	maxFailures    int

	// Launch configuration, replaced wholesale by setters (copy on
	// write); consulted at each spawn.
	spec atomic.Pointer[LaunchSpec]

	// Whether the worker should allow reflective access to private
	// members; applied to each newly connected worker.
	privateAccess atomic.Bool

	// Listener references are plain last-write-wins slots: the host may
	// replace them at any time and background threads read whatever is
	// current. No ordering is promised between a swap and in-flight
	// notifications.
	interactionL atomic.Value // interactionBox
	testL        atomic.Value // testBox
	debugL       atomic.Value // debugBox
}

type interactionBox struct{ l InteractionListener }
type testBox struct{ l TestListener }
type debugBox struct{ l DebugListener }

// Option configures a Supervisor
type Option func(*Supervisor)

// WithLauncher sets the process-supervision layer used to spawn and
// terminate workers
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) {
		s.launcher = l
	}
}

// WithLogger sets the logger; the default discards everything
func WithLogger(log zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.log = log
	}
}

// WithDiagnosticSink sets the sink receiving unexplained transport
// errors; the default records them to the supervisor's logger
func WithDiagnosticSink(d DiagnosticSink) Option {
	return func(s *Supervisor) {
		s.diag = d
	}
}

// WithStartupTimeout bounds how long delegating calls block while a
// spawn or restart is in flight
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.startupTimeout = d
	}
}

// WithMaxStartupFailures sets how many failed spawn attempts are allowed
// before the supervisor gives up and reports the terminal cause
func WithMaxStartupFailures(n int) Option {
	return func(s *Supervisor) {
		s.maxFailures = n
	}
}

// New creates a Supervisor for workers spawned from the given spec. The
// worker is not started; callers attach listeners and then call Start.
func New(spec LaunchSpec, opts ...Option) *Supervisor {
	s := &Supervisor{
		cell:           newCell(freshState()),
		launcher:       nopLauncher{},
		log:            zerolog.Nop(),
		startupTimeout: DefaultStartupTimeout,
		maxFailures:    DefaultMaxStartupFailures,
	}
	s.spec.Store(&spec)
	s.interactionL.Store(interactionBox{l: NoopInteractionListener{}})
	s.testL.Store(testBox{l: NoopTestListener{}})
	s.debugL.Store(debugBox{l: NoopDebugListener{}})

	for _, opt := range opts {
		opt(s)
	}

	if s.maxFailures < 1 {
		s.maxFailures = 1
	}
	if s.diag == nil {
		s.diag = NewLogSink(s.log)
	}
	if b, ok := s.launcher.(launcherBinder); ok {
		b.Bind(s)
	}
	return s
}

/*
 * Lifecycle operations
 */

// Start launches the worker if it is not already starting or running
func (s *Supervisor) Start() { s.doStart() }

// Stop terminates the worker, if any, without restarting it. Until Start
// is called again, all delegating operations fail soft, returning false
// or absent results.
func (s *Supervisor) Stop() { s.doStop() }

// Restart obtains a fresh worker. Equivalent to Start when no worker is
// running. A running worker that has never been used is not replaced
// unless force is set; it only re-announces readiness.
func (s *Supervisor) Restart(force bool) { s.doRestart(force) }

// Dispose stops the worker and permanently shuts the supervisor down,
// releasing the launcher's resources. Every subsequent operation other
// than Dispose itself panics with a FatalError wrapping ErrDisposed.
// Dispose is idempotent.
func (s *Supervisor) Dispose() { s.doDispose() }

// State returns the current lifecycle state kind
func (s *Supervisor) State() StateKind { return s.cell.load().kind }

/*
 * Listener wiring
 */

// SetInteractionListener provides the listener for evaluation output and
// lifecycle notifications
func (s *Supervisor) SetInteractionListener(l InteractionListener) {
	s.interactionL.Store(interactionBox{l: l})
}

// SetTestListener provides the listener for test-run notifications
func (s *Supervisor) SetTestListener(l TestListener) {
	s.testL.Store(testBox{l: l})
}

// SetDebugListener provides the listener for debugger notifications
func (s *Supervisor) SetDebugListener(l DebugListener) {
	s.debugL.Store(debugBox{l: l})
}

func (s *Supervisor) interaction() InteractionListener {
	return s.interactionL.Load().(interactionBox).l
}

func (s *Supervisor) test() TestListener {
	return s.testL.Load().(testBox).l
}

func (s *Supervisor) debug() DebugListener {
	return s.debugL.Load().(debugBox).l
}

/*
 * Launch configuration
 */

// SetAllowAssertions controls whether the worker runs assertion checks;
// takes effect at the next spawn
func (s *Supervisor) SetAllowAssertions(allow bool) {
	s.updateSpec(func(sp *LaunchSpec) { sp.EnableAssertions = allow })
}

// SetStartupClassPath replaces the class path used to spawn workers;
// takes effect at the next spawn
func (s *Supervisor) SetStartupClassPath(classPath []string) {
	cp := append([]string(nil), classPath...)
	s.updateSpec(func(sp *LaunchSpec) { sp.ClassPath = cp })
}

// SetWorkingDir replaces the worker's working directory; takes effect at
// the next spawn
func (s *Supervisor) SetWorkingDir(dir string) {
	s.updateSpec(func(sp *LaunchSpec) { sp.WorkingDir = dir })
}

// updateSpec applies fn to a copy of the current spec and publishes it.
// Concurrent updates are last-write-wins, like the listener slots.
func (s *Supervisor) updateSpec(fn func(*LaunchSpec)) {
	next := *s.spec.Load()
	fn(&next)
	s.spec.Store(&next)
}

func (s *Supervisor) launchSpec() LaunchSpec { return *s.spec.Load() }

/*
 * Side effects invoked by the transition table
 */

// spawn issues one spawn request to the launcher. The debug attach
// argument is derived from the interaction listener's port at spawn
// time, or omitted when no port is available.
func (s *Supervisor) spawn() {
	spec := s.launchSpec()
	if port, err := s.interaction().DebugPort(); err == nil && port > 0 {
		spec.DebugPort = port
	}
	s.log.Debug().Str("program", spec.Program).Msg("spawning worker")
	if err := s.launcher.Launch(spec); err != nil {
		// A synchronous launch failure is a startup failure like any
		// other; feed it back through the retry bound.
		s.WorkerFailedToStart(err)
	}
}

// signalQuit asks the launcher to terminate the live worker. A failure
// here usually means the worker beat us to it.
func (s *Supervisor) signalQuit() {
	if err := s.launcher.SignalQuit(); err != nil {
		s.log.Debug().Err(err).Msg("quit signal failed; worker likely already gone")
	}
}

// releaseResources tears the launcher down on dispose
func (s *Supervisor) releaseResources() {
	if err := s.launcher.Release(); err != nil {
		s.log.Debug().Err(err).Msg("launcher release failed")
	}
	s.log.Debug().Msg("supervisor disposed")
}

// applyStartupConfig pushes pending per-worker configuration to a newly
// connected handle before readiness is announced
func (s *Supervisor) applyStartupConfig(h WorkerHandle) {
	if err := h.SetPrivateAccess(s.privateAccess.Load()); err != nil {
		s.recordTransport(err)
	}
}

// recordTransport applies the transport error policy: failures explained
// by the worker having vanished are expected fallout of a crash or reset
// and are swallowed; anything else goes to the diagnostic sink. Either
// way the calling operation still returns its neutral result.
func (s *Supervisor) recordTransport(err error) {
	if err == nil || workerGone(err) {
		return
	}
	s.diag.Record(err)
}

// nopLauncher is the default launcher; spawn requests go nowhere. Useful
// only before a real launcher is wired in.
type nopLauncher struct{}

func (nopLauncher) Launch(LaunchSpec) error { return nil }
func (nopLauncher) SignalQuit() error       { return nil }
func (nopLauncher) Release() error          { return nil }

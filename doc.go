// Package replsup supervises a worker process that evaluates untrusted
// or experimental code on behalf of an interactive host application,
// exposing the worker's capabilities through a crash-tolerant
// request/response surface.
//
// The worker may die or be deliberately restarted at any time; the
// Supervisor keeps functioning and recovers automatically. Its
// delegating operations never fail hard for transport reasons: when no
// worker is available they return a neutral result (false, or an absent
// value) that callers are expected to tolerate.
//
//	spec := replsup.NewLaunchBuilder("java", "worker.Main").
//	    WithClassPath("/opt/app/classes").
//	    WithHeapLimit(512).
//	    Build()
//
//	sup := replsup.New(spec,
//	    replsup.WithLauncher(launcher),
//	    replsup.WithLogger(log))
//	sup.SetInteractionListener(ui)
//	sup.Start()
//
//	if !sup.Eval("2+2") {
//	    // no worker was available within the startup timeout
//	}
//
// # Lifecycle
//
// The supervisor moves through seven states: fresh (no worker),
// starting, fresh-running (connected, never used), running, restarting,
// stopping, and disposed. All coordination is lock-free: transitions are
// compare-and-swap operations on a single atomic state cell, and an
// operation whose swap loses a race simply re-reads and re-decides
// against the state that won. Startup failures are retried up to a
// configured bound; a worker that dies without a stop request is
// replaced automatically.
//
// Start, Stop, and Restart return after triggering their transition;
// they do not wait for a new worker to become ready. Use Watch or
// WaitFor to observe transitions, or rely on the Ready notification
// delivered to the interaction listener.
//
// # Process layer
//
// Process spawning and the RPC transport live behind the Launcher and
// WorkerHandle interfaces. ExecLauncher is the stock implementation: it
// runs the worker as a child process, waits for it to advertise its RPC
// endpoint through a port file, and dials the endpoint with exponential
// backoff. Hosts with their own process-management layer implement
// Launcher themselves and feed connection, exit, and startup-failure
// events to the Supervisor's LifecycleEvents methods.
//
// # Degradation contract
//
// Two sequential delegating calls may reach two different worker
// processes if a reset happens between them; the supervisor does not
// promise cross-call affinity. Programmer misuse (any call after
// Dispose, or the worker reporting busy when no call should have been
// outstanding) panics with a *FatalError rather than returning an error.
package replsup

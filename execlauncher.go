package replsup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"vawter.tech/stopper"
)

// Connector dials a worker's advertised RPC endpoint and returns a live
// handle. The exec launcher retries it with exponential backoff until
// the handshake deadline, so implementations should fail fast when the
// endpoint is not accepting connections yet.
type Connector func(ctx context.Context, endpoint string) (WorkerHandle, error)

// ExecLauncher is a Launcher that runs the worker as a child process.
// The spawned worker advertises its RPC endpoint by writing it to a port
// file inside the launcher's scratch directory (passed to the worker as
// its final argument); the launcher watches for the file, dials the
// endpoint through the Connector, and reports lifecycle events to the
// supervisor it is bound to.
//
// Configuration fields may be adjusted after NewExecLauncher but not
// once the launcher has been handed to a Supervisor.
type ExecLauncher struct {
	// Dir is the scratch directory holding the port and pid files
	Dir string

	// Connect dials the advertised endpoint
	Connect Connector

	// HandshakeTimeout bounds the wait for the port file plus the dial
	HandshakeTimeout time.Duration

	// QuitGrace is how long a worker gets to exit after a quit signal
	// before it is killed
	QuitGrace time.Duration

	// Log receives launcher diagnostics; defaults to a no-op logger
	Log zerolog.Logger

	events LifecycleEvents

	mu      sync.Mutex
	current *workerProc
}

// workerProc tracks one spawned worker process
type workerProc struct {
	cmd       *exec.Cmd
	sctx      *stopper.Context
	cancel    context.CancelFunc
	connected atomic.Bool
	// failed latches the single startup-failure report per spawn
	failed atomic.Bool
}

// NewExecLauncher creates a launcher that keeps its port and pid files
// under dir and dials workers with connect
func NewExecLauncher(dir string, connect Connector) *ExecLauncher {
	return &ExecLauncher{
		Dir:              dir,
		Connect:          connect,
		HandshakeTimeout: DefaultHandshakeTimeout,
		QuitGrace:        DefaultQuitGrace,
		Log:              zerolog.Nop(),
	}
}

// Bind wires the event sink; called by New when the launcher is handed
// to a Supervisor
func (l *ExecLauncher) Bind(events LifecycleEvents) { l.events = events }

func (l *ExecLauncher) portPath() string { return filepath.Join(l.Dir, PortFile) }
func (l *ExecLauncher) pidPath() string  { return filepath.Join(l.Dir, PidFile) }

// Launch spawns one worker process from the spec. The supervisor's state
// machine guarantees at most one spawn request is outstanding at a time;
// a second Launch while a worker is live is a wiring bug.
func (l *ExecLauncher) Launch(spec LaunchSpec) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.events == nil {
		return errors.New("replsup: launcher not bound to a supervisor")
	}
	if l.current != nil {
		return errors.New("replsup: worker already launched")
	}

	if err := os.MkdirAll(l.Dir, DirMode); err != nil {
		return fmt.Errorf("creating launcher dir: %w", err)
	}
	// A stale port file from the previous worker must not satisfy the
	// new handshake.
	if err := os.Remove(l.portPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing stale port file: %w", err)
	}

	args := append(spec.Args(), l.portPath())
	cmd := exec.Command(spec.Program, args...)
	cmd.Dir = spec.WorkingDir

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	l.Log.Debug().Int("pid", cmd.Process.Pid).Str("program", spec.Program).Msg("worker started")

	if err := renameio.WriteFile(l.pidPath(), []byte(strconv.Itoa(cmd.Process.Pid)), FileMode); err != nil {
		l.Log.Debug().Err(err).Msg("writing pid file failed")
	}

	hctx, cancel := context.WithTimeout(context.Background(), l.HandshakeTimeout)
	proc := &workerProc{
		cmd:    cmd,
		sctx:   stopper.WithContext(context.Background()),
		cancel: cancel,
	}
	proc.sctx.Defer(cancel)
	l.current = proc

	proc.sctx.Go(func(sctx *stopper.Context) error {
		l.handshake(hctx, sctx, proc)
		return nil
	})
	proc.sctx.Go(func(*stopper.Context) error {
		l.await(proc)
		return nil
	})
	return nil
}

// handshake waits for the worker's port file, dials the endpoint with
// exponential backoff, and reports the connection
func (l *ExecLauncher) handshake(ctx context.Context, sctx *stopper.Context, proc *workerProc) {
	endpoint, err := l.awaitPortFile(ctx, sctx)
	if err != nil {
		l.failStartup(proc, err)
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second

	h, err := backoff.RetryWithData(func() (WorkerHandle, error) {
		return l.Connect(ctx, endpoint)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		l.failStartup(proc, fmt.Errorf("%w: dialing %q: %v", ErrHandshake, endpoint, err))
		return
	}

	proc.connected.Store(true)
	l.Log.Debug().Str("endpoint", endpoint).Msg("worker handshake complete")
	l.events.WorkerConnected(h)
}

// awaitPortFile blocks until the worker writes its endpoint, using
// fsnotify on the scratch directory rather than polling
func (l *ExecLauncher) awaitPortFile(ctx context.Context, sctx *stopper.Context) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(l.Dir); err != nil {
		return "", fmt.Errorf("%w: watching %q: %v", ErrHandshake, l.Dir, err)
	}

	for {
		// Re-read each pass: the file may have appeared before the watch
		// was established, or an event may have been coalesced.
		if data, err := os.ReadFile(l.portPath()); err == nil {
			if endpoint := strings.TrimSpace(string(data)); endpoint != "" {
				return endpoint, nil
			}
		}

		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return "", ErrHandshake
			}
			_ = ev // any event in the dir triggers a re-read
		case werr, ok := <-watcher.Errors:
			if ok {
				l.Log.Debug().Err(werr).Msg("port file watch error")
			}
		case <-ctx.Done():
			return "", fmt.Errorf("%w: worker never advertised an endpoint", ErrHandshake)
		case <-sctx.Stopping():
			return "", ErrHandshake
		}
	}
}

// await reaps the worker process and reports its exit
func (l *ExecLauncher) await(proc *workerProc) {
	err := proc.cmd.Wait()

	status := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status = exitErr.ExitCode()
	} else if err != nil {
		status = -1
	}

	l.mu.Lock()
	if l.current == proc {
		l.current = nil
	}
	l.mu.Unlock()
	proc.cancel()

	if proc.connected.Load() {
		l.Log.Debug().Int("status", status).Msg("worker exited")
		l.events.WorkerQuit(status)
		return
	}
	// Exited before the handshake completed: a startup failure, not a
	// quit, from the supervisor's point of view.
	l.failStartup(proc, fmt.Errorf("%w: worker exited with status %d before connecting", ErrHandshake, status))
}

// failStartup reports a single startup failure per spawn and tears the
// process down if it is still running
func (l *ExecLauncher) failStartup(proc *workerProc, cause error) {
	if proc.connected.Load() || !proc.failed.CompareAndSwap(false, true) {
		return
	}
	l.Log.Debug().Err(cause).Msg("worker startup failed")
	if proc.cmd.ProcessState == nil {
		_ = proc.cmd.Process.Kill()
	}
	// Clear the slot before reporting: the supervisor may retry the
	// spawn synchronously from inside WorkerFailedToStart.
	l.mu.Lock()
	if l.current == proc {
		l.current = nil
	}
	l.mu.Unlock()
	l.events.WorkerFailedToStart(cause)
}

// SignalQuit sends the live worker a termination signal, escalating to a
// kill after the grace period
func (l *ExecLauncher) SignalQuit() error {
	l.mu.Lock()
	proc := l.current
	l.mu.Unlock()

	if proc == nil {
		return ErrWorkerGone
	}
	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling worker: %w", err)
	}

	grace := l.QuitGrace
	proc.sctx.Go(func(sctx *stopper.Context) error {
		select {
		case <-time.After(grace):
			if proc.cmd.ProcessState == nil {
				l.Log.Debug().Msg("worker ignored quit signal; killing")
				_ = proc.cmd.Process.Kill()
			}
		case <-sctx.Stopping():
		}
		return nil
	})
	return nil
}

// Release kills any live worker and stops the launcher's goroutines
func (l *ExecLauncher) Release() error {
	l.mu.Lock()
	proc := l.current
	l.current = nil
	l.mu.Unlock()

	if proc == nil {
		return nil
	}
	if proc.cmd.ProcessState == nil {
		_ = proc.cmd.Process.Kill()
	}
	proc.sctx.Stop(100 * time.Millisecond)
	return proc.sctx.Wait()
}

//go:build linux || darwin

package replsup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recEvents records lifecycle reports from a launcher under test
type recEvents struct {
	mu       sync.Mutex
	connects []WorkerHandle
	quits    []int
	failures []error
}

func (r *recEvents) WorkerConnected(h WorkerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects = append(r.connects, h)
}

func (r *recEvents) WorkerQuit(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quits = append(r.quits, status)
}

func (r *recEvents) WorkerFailedToStart(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, cause)
}

func (r *recEvents) counts() (connects, quits, failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connects), len(r.quits), len(r.failures)
}

func (r *recEvents) lastFailure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		return nil
	}
	return r.failures[len(r.failures)-1]
}

// shellSpec builds a spec that runs script under sh, with the port file
// path available as $1
func shellSpec(script string) LaunchSpec {
	return LaunchSpec{
		Program:   "sh",
		ExtraArgs: []string{"-c", script, "worker"},
	}
}

func newTestExecLauncher(t *testing.T) (*ExecLauncher, *recEvents, *MockWorker) {
	t.Helper()
	mw := &MockWorker{}
	l := NewExecLauncher(t.TempDir(), func(ctx context.Context, endpoint string) (WorkerHandle, error) {
		return mw, nil
	})
	l.HandshakeTimeout = 2 * time.Second
	l.QuitGrace = 100 * time.Millisecond
	ev := &recEvents{}
	l.Bind(ev)
	t.Cleanup(func() { _ = l.Release() })
	return l, ev, mw
}

func TestExecLauncherHandshake(t *testing.T) {
	l, ev, mw := newTestExecLauncher(t)

	var mu sync.Mutex
	var dialed string
	l.Connect = func(ctx context.Context, endpoint string) (WorkerHandle, error) {
		mu.Lock()
		dialed = endpoint
		mu.Unlock()
		return mw, nil
	}

	require.NoError(t, l.Launch(shellSpec(`echo 127.0.0.1:4321 > "$1"; sleep 10`)))

	require.Eventually(t, func() bool {
		c, _, _ := ev.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond, "worker never connected")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "127.0.0.1:4321", dialed)
}

func TestExecLauncherQuitAfterConnect(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)

	require.NoError(t, l.Launch(shellSpec(`echo 127.0.0.1:4321 > "$1"; sleep 10`)))

	require.Eventually(t, func() bool {
		c, _, _ := ev.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, l.SignalQuit())

	require.Eventually(t, func() bool {
		_, q, f := ev.counts()
		return q == 1 && f == 0
	}, 2*time.Second, 10*time.Millisecond, "exit not reported as a quit")
}

func TestExecLauncherEarlyExitIsStartupFailure(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)

	require.NoError(t, l.Launch(shellSpec(`exit 7`)))

	require.Eventually(t, func() bool {
		_, q, f := ev.counts()
		return f == 1 && q == 0
	}, 2*time.Second, 10*time.Millisecond, "early exit not reported as startup failure")
	require.ErrorIs(t, ev.lastFailure(), ErrHandshake)

	// The slot is cleared before the failure is reported, so an
	// immediate retry must be accepted.
	require.NoError(t, l.Launch(shellSpec(`exit 7`)))
}

func TestExecLauncherHandshakeTimeout(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)
	l.HandshakeTimeout = 300 * time.Millisecond

	require.NoError(t, l.Launch(shellSpec(`sleep 10`)))

	require.Eventually(t, func() bool {
		_, _, f := ev.counts()
		return f == 1
	}, 2*time.Second, 10*time.Millisecond, "silent worker not reported")
	require.ErrorIs(t, ev.lastFailure(), ErrHandshake)
}

func TestExecLauncherConnectFailureExhaustsHandshake(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)
	l.HandshakeTimeout = 300 * time.Millisecond
	dialErr := errors.New("connection refused")
	l.Connect = func(ctx context.Context, endpoint string) (WorkerHandle, error) {
		return nil, dialErr
	}

	require.NoError(t, l.Launch(shellSpec(`echo 127.0.0.1:4321 > "$1"; sleep 10`)))

	require.Eventually(t, func() bool {
		c, _, f := ev.counts()
		return f == 1 && c == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, ev.lastFailure(), ErrHandshake)
}

func TestExecLauncherRejectsDoubleLaunch(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)

	require.NoError(t, l.Launch(shellSpec(`echo 127.0.0.1:4321 > "$1"; sleep 10`)))
	require.Eventually(t, func() bool {
		c, _, _ := ev.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Error(t, l.Launch(shellSpec(`sleep 10`)))
}

func TestExecLauncherUnbound(t *testing.T) {
	l := NewExecLauncher(t.TempDir(), func(ctx context.Context, endpoint string) (WorkerHandle, error) {
		return &MockWorker{}, nil
	})
	require.Error(t, l.Launch(shellSpec(`exit 0`)))
}

func TestExecLauncherSignalQuitWithoutWorker(t *testing.T) {
	l, _, _ := newTestExecLauncher(t)
	require.ErrorIs(t, l.SignalQuit(), ErrWorkerGone)
}

func TestExecLauncherReleaseKillsWorker(t *testing.T) {
	l, ev, _ := newTestExecLauncher(t)

	require.NoError(t, l.Launch(shellSpec(`echo 127.0.0.1:4321 > "$1"; sleep 60`)))
	require.Eventually(t, func() bool {
		c, _, _ := ev.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, l.Release())
}

package replsup

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
)

// Common errors returned or raised by supervisor operations
var (
	// ErrDisposed indicates the supervisor has been disposed and can no
	// longer be used
	ErrDisposed = errors.New("replsup: supervisor disposed")

	// ErrTimeout indicates a blocking wait on the state cell expired
	ErrTimeout = errors.New("replsup: timeout awaiting state change")

	// ErrWorkerGone indicates the worker process vanished mid-call; the
	// transport layer wraps connection-severed failures with this so the
	// supervisor can swallow them silently
	ErrWorkerGone = errors.New("replsup: worker process gone")

	// ErrWorkerBusy indicates the worker reported a call while a prior
	// call on the same handle was still outstanding
	ErrWorkerBusy = errors.New("replsup: worker busy")

	// ErrHandshake indicates a spawned worker never completed the
	// connection handshake
	ErrHandshake = errors.New("replsup: worker handshake failed")
)

// FatalError wraps a lifecycle-invariant violation. These are programmer
// errors, not operational failures, and are raised as panics rather than
// returned: calling into a disposed supervisor, an unsolicited busy
// report from the worker, a worker-internal fault, or the expiry of a
// blocking wait that must not silently no-op.
type FatalError struct {
	// Reason describes the violated invariant
	Reason string
	// Err is the underlying error, if any
	Err error
}

// Error returns a formatted error message
func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replsup: %s: %v", e.Reason, e.Err)
	}
	return "replsup: " + e.Reason
}

// Unwrap returns the underlying error for error chain inspection
func (e *FatalError) Unwrap() error { return e.Err }

// fatalf panics with a FatalError. Centralized so every invariant
// violation surfaces the same way.
func fatalf(err error, format string, args ...any) {
	panic(&FatalError{Reason: fmt.Sprintf(format, args...), Err: err})
}

// workerGone reports whether a transport error means the worker process
// vanished mid-call (connection severed, end of stream). Such failures
// are an expected consequence of a crash or reset and are not recorded.
func workerGone(err error) bool {
	return errors.Is(err, ErrWorkerGone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

// DiagnosticSink receives transport errors that are not explained by the
// worker having vanished. Implementations must be safe for concurrent
// use. Recorded errors are still converted to neutral sentinel results;
// the sink exists so they are not lost entirely.
type DiagnosticSink interface {
	Record(err error)
}

// logSink records diagnostics to a zerolog logger
type logSink struct {
	log zerolog.Logger
}

// Record logs the error at error level
func (s *logSink) Record(err error) {
	s.log.Error().Err(err).Msg("worker transport error")
}

// NewLogSink returns a DiagnosticSink that records errors to the given
// logger
func NewLogSink(log zerolog.Logger) DiagnosticSink {
	return &logSink{log: log}
}

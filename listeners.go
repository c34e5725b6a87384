package replsup

// InteractionListener receives evaluation output and lifecycle
// notifications from the supervisor, plus the worker's console
// callbacks. Implementations are replaced with SetInteractionListener at
// any time; notifications in flight during a swap may reach either the
// old or the new listener.
type InteractionListener interface {
	// PrintStdout forwards text the worker wrote to its standard output
	PrintStdout(text string)

	// PrintStderr forwards text the worker wrote to its standard error
	PrintStderr(text string)

	// ConsoleInput supplies a line of console input to the worker. The
	// worker blocks until this returns.
	ConsoleInput() string

	// DebugPort returns the port a debugger is listening on, so the next
	// worker can be spawned with a debug attach argument. Return an
	// error or a non-positive port when none is available.
	DebugPort() (int, error)

	// VoidReturned reports an evaluation that produced no value
	VoidReturned()

	// ResultReturned reports an evaluation result in display form, with
	// the style tag identifying which rendering rule applied
	ResultReturned(result string, style ResultStyle)

	// ExceptionThrown reports an evaluation that raised an exception
	ExceptionThrown(message string)

	// CalledExit reports that the evaluated code terminated the worker
	// process with the given status
	CalledExit(status int)

	// Resetting reports that the worker is being replaced
	Resetting()

	// WontStart reports that the worker could not be started after the
	// configured number of attempts
	WontStart(cause error)

	// Ready reports that a worker is connected and available, running in
	// the given working directory
	Ready(workingDir string)
}

// TestFailure describes one failed or erroring test from a suite run
type TestFailure struct {
	// Name is the test name
	Name string
	// Description is the worker's account of the failure
	Description string
	// IsError distinguishes an unexpected error from an assertion failure
	IsError bool
}

// TestListener receives test-run notifications forwarded from the worker
type TestListener interface {
	// TestWorkerReady reports that a worker able to run tests is connected
	TestWorkerReady()

	// SuiteStarted reports that a suite of numTests tests began running
	SuiteStarted(numTests int)

	// TestStarted reports that the named test began running
	TestStarted(name string)

	// TestEnded reports that the named test finished
	TestEnded(name string, passed, wasError bool)

	// SuiteEnded reports that the whole suite finished, with the
	// failures accumulated across it
	SuiteEnded(failures []TestFailure)

	// NonTestCase reports that a test run was requested on a class that
	// is not a test case; isRunAll marks a run-everything request
	NonTestCase(isRunAll bool)

	// ClassFileError reports that the worker hit an unloadable class
	// file while scanning for tests
	ClassFileError(className string, cause error)

	// FileForClass resolves the source file for a class the worker needs
	// to open; empty means unknown
	FileForClass(className string) string
}

// DebugListener receives debugger-related notifications from the worker
type DebugListener interface {
	// InterpreterAssignment reports an assignment made inside the named
	// debug interpreter
	InterpreterAssignment(name string)
}

// NoopInteractionListener ignores every notification. ConsoleInput is
// the exception: the worker blocks on it for real input, so fabricating
// an answer would corrupt its read loop; requesting input with no host
// listener attached is a wiring bug and panics.
type NoopInteractionListener struct{}

func (NoopInteractionListener) PrintStdout(string)                 {}
func (NoopInteractionListener) PrintStderr(string)                 {}
func (NoopInteractionListener) DebugPort() (int, error)            { return -1, nil }
func (NoopInteractionListener) VoidReturned()                      {}
func (NoopInteractionListener) ResultReturned(string, ResultStyle) {}
func (NoopInteractionListener) ExceptionThrown(string)             {}
func (NoopInteractionListener) CalledExit(int)                     {}
func (NoopInteractionListener) Resetting()                         {}
func (NoopInteractionListener) WontStart(error)                    {}
func (NoopInteractionListener) Ready(string)                       {}

func (NoopInteractionListener) ConsoleInput() string {
	fatalf(nil, "console input requested with no interaction listener attached")
	return ""
}

// NoopTestListener ignores every test notification
type NoopTestListener struct{}

func (NoopTestListener) TestWorkerReady()             {}
func (NoopTestListener) SuiteStarted(int)             {}
func (NoopTestListener) TestStarted(string)           {}
func (NoopTestListener) TestEnded(string, bool, bool) {}
func (NoopTestListener) SuiteEnded([]TestFailure)     {}
func (NoopTestListener) NonTestCase(bool)             {}
func (NoopTestListener) ClassFileError(string, error) {}
func (NoopTestListener) FileForClass(string) string   { return "" }

// NoopDebugListener ignores every debug notification
type NoopDebugListener struct{}

func (NoopDebugListener) InterpreterAssignment(string) {}

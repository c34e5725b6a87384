package replsup

// WorkerHandle is the live reference to a connected worker's RPC
// endpoint. A handle is valid only while the lifecycle state that owns
// it is current; callers must not retain one across a reset. Transport
// implementations wrap connection-severed failures so they satisfy
// errors.Is against ErrWorkerGone, io.EOF, or net.ErrClosed.
type WorkerHandle interface {
	// Eval evaluates an expression and reports its outcome
	Eval(expr string) (EvalResult, error)

	// VariableText returns the textual rendering of a variable's value
	VariableText(name string) (string, error)

	// VariableType returns the type name of a variable's value
	VariableType(name string) (string, error)

	// AddClassPathEntry adds a path to one of the worker's class path groups
	AddClassPathEntry(kind ClassPathKind, path string) error

	// ClassPath returns the worker's current class path as unique entries
	ClassPath() ([]string, error)

	// SetPackageScope places subsequent evaluations in the named package
	SetPackageScope(name string) error

	// FindTestClasses caches a test suite from the given classes and
	// files, returning the names that are actually test cases
	FindTestClasses(classNames, files []string) ([]string, error)

	// RunTestSuite runs the cached test suite; false means none was cached
	RunTestSuite() (bool, error)

	// AddInterpreter registers a named sub-interpreter; the name must be
	// unique
	AddInterpreter(name string) error

	// RemoveInterpreter removes the named sub-interpreter, if it exists
	RemoveInterpreter(name string) error

	// SetActiveInterpreter makes the named sub-interpreter current
	SetActiveInterpreter(name string) (InterpreterSwitch, error)

	// SetDefaultInterpreter makes the default interpreter current
	SetDefaultInterpreter() (InterpreterSwitch, error)

	// SetPrivateAccess controls reflective access to private members
	SetPrivateAccess(allow bool) error
}

/*
 * Delegating operations. Each one resolves a handle through the state
 * machine, returns its neutral sentinel when no worker is available, and
 * otherwise invokes the remote operation, converting any transport
 * failure to the same sentinel after applying the error policy. These
 * operations never fail hard for transport reasons; success cannot be
 * guaranteed anyway, since the worker may exit at any moment, so callers
 * are expected to tolerate the sentinel.
 */

// Eval evaluates an expression in the worker and dispatches its outcome
// to the interaction listener. Blocks until a worker is connected.
// Returns false if no worker is available, the worker dies during the
// call, or a transport error occurs. This call counts as real use and
// demotes a fresh worker.
func (s *Supervisor) Eval(expr string) bool {
	h := s.workerFor(true)
	if h == nil {
		return false
	}
	res, err := h.Eval(expr)
	if err != nil {
		s.recordTransport(err)
		return false
	}
	s.log.Debug().Str("result", res.String()).Msg("evaluation completed")
	s.dispatchResult(res)
	return true
}

// VariableText returns the textual rendering of a variable's value in
// the current interpreter; ok is false if the worker is unavailable or
// an error occurs
func (s *Supervisor) VariableText(name string) (text string, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return "", false
	}
	text, err := h.VariableText(name)
	if err != nil {
		s.recordTransport(err)
		return "", false
	}
	return text, true
}

// VariableType returns the type name of a variable's value in the
// current interpreter; ok is false if the worker is unavailable or an
// error occurs
func (s *Supervisor) VariableType(name string) (typeName string, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return "", false
	}
	typeName, err := h.VariableType(name)
	if err != nil {
		s.recordTransport(err)
		return "", false
	}
	return typeName, true
}

// AddClassPathEntry adds a path to one of the worker's class path
// groups, returning whether the change reached the worker
func (s *Supervisor) AddClassPathEntry(kind ClassPathKind, path string) bool {
	h := s.workerFor(false)
	if h == nil {
		return false
	}
	if err := h.AddClassPathEntry(kind, path); err != nil {
		s.recordTransport(err)
		return false
	}
	return true
}

// ClassPath returns the worker's current class path as an ordered
// sequence of unique entries; ok is false if the worker is unavailable
// or an error occurs
func (s *Supervisor) ClassPath() (paths []string, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return nil, false
	}
	paths, err := h.ClassPath()
	if err != nil {
		s.recordTransport(err)
		return nil, false
	}
	return paths, true
}

// SetPackageScope places subsequent evaluations in the named package,
// returning whether the change reached the worker
func (s *Supervisor) SetPackageScope(name string) bool {
	h := s.workerFor(false)
	if h == nil {
		return false
	}
	if err := h.SetPackageScope(name); err != nil {
		s.recordTransport(err)
		return false
	}
	return true
}

// FindTestClasses caches a test suite in the worker and returns which of
// the given class names are actually test cases; ok is false if the
// worker is unavailable or an error occurs
func (s *Supervisor) FindTestClasses(classNames, files []string) (tests []string, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return nil, false
	}
	tests, err := h.FindTestClasses(classNames, files)
	if err != nil {
		s.recordTransport(err)
		return nil, false
	}
	return tests, true
}

// RunTestSuite runs the test suite already cached in the worker. Returns
// false if no suite is cached, the worker is unavailable, or an error
// occurs. This call counts as real use and demotes a fresh worker.
func (s *Supervisor) RunTestSuite() bool {
	h := s.workerFor(true)
	if h == nil {
		return false
	}
	ran, err := h.RunTestSuite()
	if err != nil {
		s.recordTransport(err)
		return false
	}
	return ran
}

// AddInterpreter registers a named sub-interpreter in the worker,
// returning whether the registration reached it. The name must be
// unique; registering a duplicate is the caller's contract violation and
// surfaces through the worker's error, which is recorded and converted
// to false like any other failure.
func (s *Supervisor) AddInterpreter(name string) bool {
	h := s.workerFor(false)
	if h == nil {
		return false
	}
	if err := h.AddInterpreter(name); err != nil {
		s.recordTransport(err)
		return false
	}
	return true
}

// RemoveInterpreter removes the named sub-interpreter, if it exists,
// returning whether the request reached the worker
func (s *Supervisor) RemoveInterpreter(name string) bool {
	h := s.workerFor(false)
	if h == nil {
		return false
	}
	if err := h.RemoveInterpreter(name); err != nil {
		s.recordTransport(err)
		return false
	}
	return true
}

// SetActiveInterpreter makes the named sub-interpreter current; ok is
// false if the worker is unavailable or an error occurs
func (s *Supervisor) SetActiveInterpreter(name string) (sw InterpreterSwitch, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return InterpreterSwitch{}, false
	}
	sw, err := h.SetActiveInterpreter(name)
	if err != nil {
		s.recordTransport(err)
		return InterpreterSwitch{}, false
	}
	return sw, true
}

// SetDefaultInterpreter makes the default interpreter current; ok is
// false if the worker is unavailable or an error occurs
func (s *Supervisor) SetDefaultInterpreter() (sw InterpreterSwitch, ok bool) {
	h := s.workerFor(false)
	if h == nil {
		return InterpreterSwitch{}, false
	}
	sw, err := h.SetDefaultInterpreter()
	if err != nil {
		s.recordTransport(err)
		return InterpreterSwitch{}, false
	}
	return sw, true
}

// SetPrivateAccess controls the worker's reflective access to private
// members, returning whether the change reached the worker. The setting
// is remembered and reapplied to each newly connected worker.
func (s *Supervisor) SetPrivateAccess(allow bool) bool {
	s.privateAccess.Store(allow)
	h := s.workerFor(false)
	if h == nil {
		return false
	}
	if err := h.SetPrivateAccess(allow); err != nil {
		s.recordTransport(err)
		return false
	}
	return true
}

/*
 * Worker-to-host callbacks. The transport layer invokes these on behalf
 * of the worker; each forwards to whichever listener is current.
 */

// PrintStdout forwards worker standard output to the interaction listener
func (s *Supervisor) PrintStdout(text string) { s.interaction().PrintStdout(text) }

// PrintStderr forwards worker standard error to the interaction listener
func (s *Supervisor) PrintStderr(text string) { s.interaction().PrintStderr(text) }

// ConsoleInput obtains a line of console input from the host for the
// worker; the worker blocks until it returns
func (s *Supervisor) ConsoleInput() string { return s.interaction().ConsoleInput() }

// TestSuiteStarted forwards the start of a test suite run
func (s *Supervisor) TestSuiteStarted(numTests int) { s.test().SuiteStarted(numTests) }

// TestStarted forwards the start of one test
func (s *Supervisor) TestStarted(name string) { s.test().TestStarted(name) }

// TestEnded forwards the end of one test
func (s *Supervisor) TestEnded(name string, passed, wasError bool) {
	s.test().TestEnded(name, passed, wasError)
}

// TestSuiteEnded forwards the end of a suite run with its failures
func (s *Supervisor) TestSuiteEnded(failures []TestFailure) { s.test().SuiteEnded(failures) }

// NonTestCase forwards a test request against a class that is not a test
func (s *Supervisor) NonTestCase(isRunAll bool) { s.test().NonTestCase(isRunAll) }

// ClassFileError forwards an unloadable class file hit during test scans
func (s *Supervisor) ClassFileError(className string, cause error) {
	s.test().ClassFileError(className, cause)
}

// FileForClass resolves the source file for a class the worker needs
func (s *Supervisor) FileForClass(className string) string {
	return s.test().FileForClass(className)
}

// DebugInterpreterAssignment forwards an assignment made inside the
// named debug interpreter
func (s *Supervisor) DebugInterpreterAssignment(name string) {
	s.debug().InterpreterAssignment(name)
}

package replsup

import (
	"sync"
)

// MockWorker is a WorkerHandle backed by in-memory state, for tests that
// exercise the supervisor without a real worker process. All methods
// record the operation name in Calls. When Err is set, every method
// fails with it.
type MockWorker struct {
	mu sync.Mutex

	// Err, when set, is returned from every operation
	Err error

	// EvalFunc scripts evaluation outcomes; nil defaults to NoValueResult
	EvalFunc func(expr string) (EvalResult, error)

	// Variables and Types back the variable queries
	Variables map[string]string
	Types     map[string]string

	// PrivateAccess mirrors the last SetPrivateAccess value
	PrivateAccess bool

	// PackageScope mirrors the last SetPackageScope value
	PackageScope string

	classPath    []string
	interpreters map[string]bool
	calls        []string
}

// NewMockWorker creates an empty MockWorker
func NewMockWorker() *MockWorker {
	return &MockWorker{
		Variables:    make(map[string]string),
		Types:        make(map[string]string),
		interpreters: make(map[string]bool),
	}
}

func (m *MockWorker) record(op string) {
	m.mu.Lock()
	m.calls = append(m.calls, op)
	m.mu.Unlock()
}

// Calls returns the operations invoked so far, in order
func (m *MockWorker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Eval implements WorkerHandle
func (m *MockWorker) Eval(expr string) (EvalResult, error) {
	m.record("eval")
	if m.Err != nil {
		return EvalResult{}, m.Err
	}
	if m.EvalFunc != nil {
		return m.EvalFunc(expr)
	}
	return NoValueResult(), nil
}

// VariableText implements WorkerHandle
func (m *MockWorker) VariableText(name string) (string, error) {
	m.record("variable-text")
	if m.Err != nil {
		return "", m.Err
	}
	return m.Variables[name], nil
}

// VariableType implements WorkerHandle
func (m *MockWorker) VariableType(name string) (string, error) {
	m.record("variable-type")
	if m.Err != nil {
		return "", m.Err
	}
	return m.Types[name], nil
}

// AddClassPathEntry implements WorkerHandle
func (m *MockWorker) AddClassPathEntry(kind ClassPathKind, path string) error {
	m.record("add-class-path:" + kind.String())
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.classPath = append(m.classPath, path)
	m.mu.Unlock()
	return nil
}

// ClassPath implements WorkerHandle
func (m *MockWorker) ClassPath() ([]string, error) {
	m.record("class-path")
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.classPath...), nil
}

// SetPackageScope implements WorkerHandle
func (m *MockWorker) SetPackageScope(name string) error {
	m.record("set-package-scope")
	if m.Err != nil {
		return m.Err
	}
	m.PackageScope = name
	return nil
}

// FindTestClasses implements WorkerHandle; every class name ending in
// "Test" counts as a test case
func (m *MockWorker) FindTestClasses(classNames, files []string) ([]string, error) {
	m.record("find-test-classes")
	if m.Err != nil {
		return nil, m.Err
	}
	var tests []string
	for _, name := range classNames {
		if len(name) >= 4 && name[len(name)-4:] == "Test" {
			tests = append(tests, name)
		}
	}
	return tests, nil
}

// RunTestSuite implements WorkerHandle
func (m *MockWorker) RunTestSuite() (bool, error) {
	m.record("run-test-suite")
	if m.Err != nil {
		return false, m.Err
	}
	return true, nil
}

// AddInterpreter implements WorkerHandle
func (m *MockWorker) AddInterpreter(name string) error {
	m.record("add-interpreter")
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interpreters[name] = true
	return nil
}

// RemoveInterpreter implements WorkerHandle
func (m *MockWorker) RemoveInterpreter(name string) error {
	m.record("remove-interpreter")
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interpreters, name)
	return nil
}

// SetActiveInterpreter implements WorkerHandle
func (m *MockWorker) SetActiveInterpreter(name string) (InterpreterSwitch, error) {
	m.record("set-active-interpreter")
	if m.Err != nil {
		return InterpreterSwitch{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return InterpreterSwitch{Changed: m.interpreters[name]}, nil
}

// SetDefaultInterpreter implements WorkerHandle
func (m *MockWorker) SetDefaultInterpreter() (InterpreterSwitch, error) {
	m.record("set-default-interpreter")
	if m.Err != nil {
		return InterpreterSwitch{}, m.Err
	}
	return InterpreterSwitch{Changed: true}, nil
}

// SetPrivateAccess implements WorkerHandle
func (m *MockWorker) SetPrivateAccess(allow bool) error {
	m.record("set-private-access")
	if m.Err != nil {
		return m.Err
	}
	m.PrivateAccess = allow
	return nil
}

// MockLauncher is a Launcher that records spawn requests and quit
// signals and lets tests drive the lifecycle events by hand
type MockLauncher struct {
	mu sync.Mutex

	// LaunchErr, when set, makes every Launch fail synchronously
	LaunchErr error

	events   LifecycleEvents
	specs    []LaunchSpec
	quits    int
	released bool
}

// Bind implements the binder hook used by New
func (m *MockLauncher) Bind(events LifecycleEvents) { m.events = events }

// Launch implements Launcher
func (m *MockLauncher) Launch(spec LaunchSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LaunchErr != nil {
		return m.LaunchErr
	}
	m.specs = append(m.specs, spec)
	return nil
}

// SignalQuit implements Launcher
func (m *MockLauncher) SignalQuit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quits++
	return nil
}

// Release implements Launcher
func (m *MockLauncher) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

// Launches returns how many spawn requests have been issued
func (m *MockLauncher) Launches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.specs)
}

// LastSpec returns the most recent spawn request
func (m *MockLauncher) LastSpec() LaunchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.specs) == 0 {
		return LaunchSpec{}
	}
	return m.specs[len(m.specs)-1]
}

// QuitSignals returns how many quit signals have been sent
func (m *MockLauncher) QuitSignals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quits
}

// Released reports whether Release has been called
func (m *MockLauncher) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Connect simulates the worker completing its handshake
func (m *MockLauncher) Connect(h WorkerHandle) { m.events.WorkerConnected(h) }

// ReportQuit simulates the worker process terminating
func (m *MockLauncher) ReportQuit(status int) { m.events.WorkerQuit(status) }

// ReportStartFailure simulates a spawn or handshake failure
func (m *MockLauncher) ReportStartFailure(cause error) { m.events.WorkerFailedToStart(cause) }

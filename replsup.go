package replsup

import "time"

// Supervisor defaults
const (
	// DefaultStartupTimeout is how long a delegating call blocks while a
	// spawn or restart is in flight before failing soft
	DefaultStartupTimeout = 10 * time.Second

	// DefaultMaxStartupFailures is the number of failed spawn attempts
	// allowed before the supervisor gives up and reverts to Fresh
	DefaultMaxStartupFailures = 3

	// DefaultHandshakeTimeout is how long the exec launcher waits for a
	// spawned worker to advertise its endpoint before reporting a
	// startup failure
	DefaultHandshakeTimeout = 15 * time.Second

	// DefaultQuitGrace is how long the exec launcher waits after a quit
	// signal before forcibly killing the worker process
	DefaultQuitGrace = 5 * time.Second
)

// File names used by the exec launcher inside its scratch directory
const (
	// PortFile is written by the worker once its RPC endpoint is bound
	PortFile = "port"

	// PidFile records the worker's process id
	PidFile = "pid"
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644
)

// ClassPathKind identifies which of the worker's class path groups an
// entry is added to
type ClassPathKind int

const (
	// ClassPathUnknown represents an unrecognized class path group
	ClassPathUnknown ClassPathKind = iota
	// ClassPathProject is the open project's source class path
	ClassPathProject
	// ClassPathBuildOutput is the project's build output directory
	ClassPathBuildOutput
	// ClassPathProjectFiles covers individual files belonging to the project
	ClassPathProjectFiles
	// ClassPathExternalFiles covers open files outside the project
	ClassPathExternalFiles
	// ClassPathExtra is the user-configured extra class path
	ClassPathExtra
)

// ClassPathKind string constants
const (
	cpUnknownStr       = "unknown"
	cpProjectStr       = "project"
	cpBuildOutputStr   = "build-output"
	cpProjectFilesStr  = "project-files"
	cpExternalFilesStr = "external-files"
	cpExtraStr         = "extra"
)

// String returns the string representation of a ClassPathKind
func (k ClassPathKind) String() string {
	switch k {
	case ClassPathProject:
		return cpProjectStr
	case ClassPathBuildOutput:
		return cpBuildOutputStr
	case ClassPathProjectFiles:
		return cpProjectFilesStr
	case ClassPathExternalFiles:
		return cpExternalFilesStr
	case ClassPathExtra:
		return cpExtraStr
	default:
		return cpUnknownStr
	}
}

// InterpreterSwitch reports the outcome of switching the worker's active
// interpreter: whether the active interpreter actually changed, and
// whether the target interpreter is currently busy with an evaluation.
type InterpreterSwitch struct {
	Changed bool
	Busy    bool
}

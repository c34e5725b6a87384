package replsup

import (
	"fmt"
	"strings"
)

// LaunchSpec is the configuration bundle handed to the Launcher for each
// spawn: the worker executable, its class path, working directory, and
// the process arguments derived from the supervisor's settings. Values
// are copied on every spawn; mutating a spec after passing it to New has
// no effect.
type LaunchSpec struct {
	// Program is the worker runtime executable (defaults to "java")
	Program string
	// MainClass is the worker's entry point class
	MainClass string
	// ClassPath is the ordered class path the worker starts with
	ClassPath []string
	// WorkingDir is the worker's working directory; empty inherits the
	// host's
	WorkingDir string
	// EnableAssertions turns on assertion checking in the worker
	EnableAssertions bool
	// HeapLimitMB caps the worker heap; zero leaves the runtime default
	HeapLimitMB int
	// ExtraArgs are user-supplied runtime arguments, already tokenized
	ExtraArgs []string
	// DebugPort, when positive, makes the worker accept a remote
	// debugger attach on that port
	DebugPort int
}

// PathListSeparator joins class path entries on the command line
const PathListSeparator = ":"

// Args assembles the full argument vector for the worker process,
// excluding the program itself: runtime flags first, then the class path
// and entry point. Platform-specific flags come from the build-tagged
// platformArgs.
func (sp LaunchSpec) Args() []string {
	var args []string
	if sp.EnableAssertions {
		args = append(args, "-ea")
	}
	if sp.DebugPort > 0 {
		args = append(args,
			fmt.Sprintf("-agentlib:jdwp=transport=dt_socket,server=y,suspend=n,address=%d", sp.DebugPort))
	}
	if sp.HeapLimitMB > 0 {
		args = append(args, fmt.Sprintf("-Xmx%dM", sp.HeapLimitMB))
	}
	args = append(args, platformArgs()...)
	args = append(args, sp.ExtraArgs...)
	if len(sp.ClassPath) > 0 {
		args = append(args, "-cp", strings.Join(sp.ClassPath, PathListSeparator))
	}
	if sp.MainClass != "" {
		args = append(args, sp.MainClass)
	}
	return args
}

// LaunchBuilder provides a fluent interface for assembling a LaunchSpec
type LaunchBuilder struct {
	spec LaunchSpec
}

// NewLaunchBuilder creates a builder for workers run by the given
// program and entry point
func NewLaunchBuilder(program, mainClass string) *LaunchBuilder {
	return &LaunchBuilder{spec: LaunchSpec{Program: program, MainClass: mainClass}}
}

// WithClassPath sets the worker's startup class path
func (b *LaunchBuilder) WithClassPath(paths ...string) *LaunchBuilder {
	b.spec.ClassPath = append([]string(nil), paths...)
	return b
}

// WithWorkingDir sets the worker's working directory
func (b *LaunchBuilder) WithWorkingDir(dir string) *LaunchBuilder {
	b.spec.WorkingDir = dir
	return b
}

// WithAssertions enables assertion checking in the worker
func (b *LaunchBuilder) WithAssertions(enable bool) *LaunchBuilder {
	b.spec.EnableAssertions = enable
	return b
}

// WithHeapLimit caps the worker heap in megabytes
func (b *LaunchBuilder) WithHeapLimit(mb int) *LaunchBuilder {
	b.spec.HeapLimitMB = mb
	return b
}

// WithExtraArgs tokenizes and appends user-supplied runtime arguments
func (b *LaunchBuilder) WithExtraArgs(args string) *LaunchBuilder {
	b.spec.ExtraArgs = append(b.spec.ExtraArgs, TokenizeArgs(args)...)
	return b
}

// WithDebugPort makes the worker accept a remote debugger attach
func (b *LaunchBuilder) WithDebugPort(port int) *LaunchBuilder {
	b.spec.DebugPort = port
	return b
}

// Build returns the assembled spec
func (b *LaunchBuilder) Build() LaunchSpec {
	sp := b.spec
	sp.ClassPath = append([]string(nil), sp.ClassPath...)
	sp.ExtraArgs = append([]string(nil), sp.ExtraArgs...)
	if sp.Program == "" {
		sp.Program = "java"
	}
	return sp
}

// TokenizeArgs splits a user-supplied argument string on whitespace,
// honoring single and double quotes and backslash escapes, so values
// like -Dname="some value" survive as one argument.
func TokenizeArgs(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		inTok   bool
		quote   rune
		escaped bool
	)

	flush := func() {
		if inTok {
			args = append(args, cur.String())
			cur.Reset()
			inTok = false
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			inTok = true
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inTok = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inTok = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	flush()
	return args
}

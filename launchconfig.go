package replsup

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// fileSpec mirrors LaunchSpec with TOML-friendly field names. Extra
// arguments are accepted as a single string and tokenized, matching how
// they are supplied interactively.
type fileSpec struct {
	Program    string   `toml:"program"`
	MainClass  string   `toml:"main_class"`
	ClassPath  []string `toml:"class_path"`
	WorkingDir string   `toml:"working_dir"`
	Assertions bool     `toml:"assertions"`
	HeapMB     int      `toml:"heap_mb"`
	ExtraArgs  string   `toml:"extra_args"`
	DebugPort  int      `toml:"debug_port"`
}

type launchFile struct {
	Worker fileSpec `toml:"worker"`
}

// LoadLaunchSpec reads a LaunchSpec from a TOML file of the form:
//
//	[worker]
//	program = "java"
//	main_class = "worker.Main"
//	class_path = ["/opt/app/classes", "/opt/app/lib/deps.jar"]
//	working_dir = "/opt/app"
//	assertions = true
//	heap_mb = 512
//	extra_args = "-Dname=\"some value\""
func LoadLaunchSpec(path string) (LaunchSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("reading launch config: %w", err)
	}
	var lf launchFile
	if err := toml.Unmarshal(b, &lf); err != nil {
		return LaunchSpec{}, fmt.Errorf("parsing launch config %q: %w", path, err)
	}

	fs := lf.Worker
	b2 := NewLaunchBuilder(fs.Program, fs.MainClass).
		WithClassPath(fs.ClassPath...).
		WithWorkingDir(fs.WorkingDir).
		WithAssertions(fs.Assertions).
		WithHeapLimit(fs.HeapMB).
		WithExtraArgs(fs.ExtraArgs)
	if fs.DebugPort > 0 {
		b2.WithDebugPort(fs.DebugPort)
	}
	return b2.Build(), nil
}

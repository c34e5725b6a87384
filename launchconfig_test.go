package replsup

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeLaunchConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLaunchSpec(t *testing.T) {
	path := writeLaunchConfig(t, `
[worker]
program = "java"
main_class = "worker.Main"
class_path = ["/opt/app/classes", "/opt/app/lib/deps.jar"]
working_dir = "/opt/app"
assertions = true
heap_mb = 512
extra_args = "-Dname=\"some value\" -verbose"
debug_port = 5005
`)

	spec, err := LoadLaunchSpec(path)
	if err != nil {
		t.Fatal(err)
	}

	if spec.Program != "java" || spec.MainClass != "worker.Main" {
		t.Errorf("program/main = %q/%q", spec.Program, spec.MainClass)
	}
	if !reflect.DeepEqual(spec.ClassPath, []string{"/opt/app/classes", "/opt/app/lib/deps.jar"}) {
		t.Errorf("class path = %v", spec.ClassPath)
	}
	if spec.WorkingDir != "/opt/app" {
		t.Errorf("working dir = %q", spec.WorkingDir)
	}
	if !spec.EnableAssertions || spec.HeapLimitMB != 512 || spec.DebugPort != 5005 {
		t.Errorf("spec = %+v", spec)
	}
	if !reflect.DeepEqual(spec.ExtraArgs, []string{"-Dname=some value", "-verbose"}) {
		t.Errorf("extra args = %q", spec.ExtraArgs)
	}
}

func TestLoadLaunchSpecDefaults(t *testing.T) {
	path := writeLaunchConfig(t, `
[worker]
main_class = "worker.Main"
`)
	spec, err := LoadLaunchSpec(path)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Program != "java" {
		t.Errorf("program = %q, want java", spec.Program)
	}
	if spec.EnableAssertions || spec.HeapLimitMB != 0 || spec.DebugPort != 0 {
		t.Errorf("spec = %+v, want zero extras", spec)
	}
}

func TestLoadLaunchSpecMissingFile(t *testing.T) {
	if _, err := LoadLaunchSpec(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestLoadLaunchSpecBadTOML(t *testing.T) {
	path := writeLaunchConfig(t, `[worker`)
	if _, err := LoadLaunchSpec(path); err == nil {
		t.Fatal("want error for malformed file")
	}
}

package replsup

import (
	"reflect"
	"strings"
	"testing"
)

func TestLaunchSpecArgs(t *testing.T) {
	spec := LaunchSpec{
		Program:          "java",
		MainClass:        "worker.Main",
		ClassPath:        []string{"/a", "/b"},
		EnableAssertions: true,
		HeapLimitMB:      512,
		ExtraArgs:        []string{"-Dfoo=bar"},
		DebugPort:        5005,
	}
	args := spec.Args()
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-ea",
		"-Xmx512M",
		"-agentlib:jdwp=transport=dt_socket,server=y,suspend=n,address=5005",
		"-Dfoo=bar",
		"-cp /a" + PathListSeparator + "/b",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "worker.Main" {
		t.Errorf("entry point %q must come last, args = %q", "worker.Main", joined)
	}
}

func TestLaunchSpecArgsMinimal(t *testing.T) {
	spec := LaunchSpec{Program: "java", MainClass: "worker.Main"}
	args := spec.Args()
	joined := strings.Join(args, " ")

	for _, banned := range []string{"-ea", "-Xmx", "jdwp", "-cp"} {
		if strings.Contains(joined, banned) {
			t.Errorf("args %q should not contain %q", joined, banned)
		}
	}
}

func TestLaunchBuilder(t *testing.T) {
	spec := NewLaunchBuilder("java", "worker.Main").
		WithClassPath("/classes", "/lib/deps.jar").
		WithWorkingDir("/work").
		WithAssertions(true).
		WithHeapLimit(256).
		WithExtraArgs(`-Dname="some value" -verbose`).
		WithDebugPort(9009).
		Build()

	if spec.Program != "java" || spec.MainClass != "worker.Main" {
		t.Errorf("program/main = %q/%q", spec.Program, spec.MainClass)
	}
	if !reflect.DeepEqual(spec.ClassPath, []string{"/classes", "/lib/deps.jar"}) {
		t.Errorf("class path = %v", spec.ClassPath)
	}
	if spec.WorkingDir != "/work" || !spec.EnableAssertions || spec.HeapLimitMB != 256 || spec.DebugPort != 9009 {
		t.Errorf("spec = %+v", spec)
	}
	if !reflect.DeepEqual(spec.ExtraArgs, []string{"-Dname=some value", "-verbose"}) {
		t.Errorf("extra args = %q", spec.ExtraArgs)
	}
}

func TestLaunchBuilderDefaultsProgram(t *testing.T) {
	spec := NewLaunchBuilder("", "worker.Main").Build()
	if spec.Program != "java" {
		t.Errorf("program = %q, want java", spec.Program)
	}
}

func TestTokenizeArgs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"-ea", []string{"-ea"}},
		{"-ea -verbose", []string{"-ea", "-verbose"}},
		{"  -ea\t-verbose \n", []string{"-ea", "-verbose"}},
		{`-Dname="some value"`, []string{"-Dname=some value"}},
		{`'single quoted arg'`, []string{"single quoted arg"}},
		{`a\ b`, []string{"a b"}},
		{`"" x`, []string{"", "x"}},
		{`-Dpath="C:\\tmp"`, []string{`-Dpath=C:\tmp`}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := TokenizeArgs(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("TokenizeArgs(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

//go:build darwin

package replsup

// platformArgs returns worker arguments specific to macOS: the dock
// entry for the worker process gets a stable name instead of the bare
// class name.
func platformArgs() []string {
	return []string{"-Xdock:name=Interactions"}
}

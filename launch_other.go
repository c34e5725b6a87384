//go:build !darwin

package replsup

// platformArgs returns worker arguments specific to the host platform;
// none are needed outside macOS
func platformArgs() []string { return nil }

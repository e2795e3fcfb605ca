package version

import "fmt"

// Populated at build time via -ldflags "-X ...".
var (
	App       = "LineGate"
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	BuildOS   string
	BuildArch string
)

// PrintVersion writes the build information to stdout. Fields left
// empty by the build are skipped.
func PrintVersion() {
	release := Version
	if release == "" {
		release = "dev"
	}
	fmt.Printf("%s version %s\n", App, release)

	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	for _, field := range []struct{ label, value string }{
		{"Git commit", commit},
		{"Build time", BuildTime},
		{"Go version", GoVersion},
	} {
		if field.value != "" {
			fmt.Printf("%s: %s\n", field.label, field.value)
		}
	}
	if BuildOS != "" && BuildArch != "" {
		fmt.Printf("Built for: %s/%s\n", BuildOS, BuildArch)
	}
}

package terminal

import (
	"io"
	"strings"

	"golang.org/x/term"
)

// colorTerminals lists TERM values (or prefixes) that are known to support
// basic terminal colors.
var colorTerminals = []string{
	"xterm",
	"screen",
	"tmux",
	"rxvt",
	"vt100",
	"vt220",
	"ansi",
	"linux",
	"cygwin",
	"putty",
}

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"TRAVIS",                 // Travis CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILD_NUMBER",           // Jenkins/TeamCity/etc
	"GITLAB_CI",              // GitLab CI
	"BUILDKITE",              // Buildkite
	"TF_BUILD",               // Azure DevOps
}

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether w is a file descriptor attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSupportsColor checks TERM against the known color terminals. Unknown
// terminals get no color.
func termSupportsColor(termName string) bool {
	termName = strings.ToLower(strings.TrimSpace(termName))
	if termName == "" || termName == "dumb" {
		return false
	}
	for _, colorTerm := range colorTerminals {
		if termName == colorTerm || strings.HasPrefix(termName, colorTerm+"-") {
			return true
		}
	}
	return false
}

// inCI reports whether the environment looks like a CI runner. CI=false and
// CI=0 do not count.
func inCI(lookup LookupEnv) bool {
	for _, name := range ciEnvVars {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if name == "CI" {
			lower := strings.ToLower(strings.TrimSpace(value))
			return lower != "false" && lower != "0" && lower != "no"
		}
		return true
	}
	return false
}

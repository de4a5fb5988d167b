package terminal

import (
	"io"
	"os"
)

// LookupEnv has the signature of os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Options configures capability detection.
type Options struct {
	// Mode is the explicit color preference. The zero value is ColorAuto.
	Mode ColorMode
	// Output is the writer reports are printed to.
	Output io.Writer
	// Env overrides os.LookupEnv.
	Env LookupEnv
	// Interactive overrides terminal detection when non-nil.
	Interactive *bool
}

// Capabilities describes the output destination.
type Capabilities struct {
	mode        ColorMode
	env         LookupEnv
	interactive bool
}

// NewCapabilities probes the output destination once.
func NewCapabilities(opts Options) *Capabilities {
	env := opts.Env
	if env == nil {
		env = os.LookupEnv
	}
	mode := opts.Mode
	if mode == "" {
		mode = ColorAuto
	}

	interactive := false
	switch {
	case opts.Interactive != nil:
		interactive = *opts.Interactive
	case inCI(env):
	default:
		interactive = IsTerminal(opts.Output)
	}
	return &Capabilities{mode: mode, env: env, interactive: interactive}
}

// IsInteractive reports whether the output is a terminal outside CI.
func (c *Capabilities) IsInteractive() bool {
	return c.interactive
}

// SupportsColor returns true if color output should be enabled. Priority:
//  1. -color always|never (or the config file)
//  2. CLICOLOR_FORCE=1
//  3. NO_COLOR, any value
//  4. non-interactive output gets no color
//  5. CLICOLOR on an interactive terminal
//  6. TERM auto-detection
func (c *Capabilities) SupportsColor() bool {
	switch c.mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	if v, ok := c.env("CLICOLOR_FORCE"); ok && isTruthy(v) {
		return true
	}
	if _, ok := c.env("NO_COLOR"); ok {
		return false
	}
	if !c.interactive {
		return false
	}
	termName, _ := c.env("TERM")
	if !termSupportsColor(termName) {
		return false
	}
	if v, ok := c.env("CLICOLOR"); ok && v != "" {
		return isTruthy(v)
	}
	return true
}

// HasExplicitUserPreference reports whether the color decision came from
// the user rather than auto-detection.
func (c *Capabilities) HasExplicitUserPreference() bool {
	if c.mode != ColorAuto {
		return true
	}
	if v, ok := c.env("CLICOLOR_FORCE"); ok && isTruthy(v) {
		return true
	}
	_, ok := c.env("NO_COLOR")
	return ok
}

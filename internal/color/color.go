// Package color wraps text in ANSI escape sequences and groups colors into
// schemes for report output.
//
//nolint:revive // package name conflicts with standard library
package color

// ANSI color codes
const (
	resetCode  = "\033[0m"
	boldCode   = "\033[1m"
	grayCode   = "\033[90m" // Bright black/gray
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	cyanCode   = "\033[36m"
)

// Color wraps text with ANSI escape sequences.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// None returns text unchanged.
func None(text string) string {
	return text
}

// Predefined color functions
var (
	Bold   = NewColor(boldCode)
	Gray   = NewColor(grayCode)
	Green  = NewColor(greenCode)
	Yellow = NewColor(yellowCode)
	Red    = NewColor(redCode)
	Cyan   = NewColor(cyanCode)
)

// Scheme assigns a color to each role in report output.
type Scheme struct {
	Heading Color
	Error   Color
	Warning Color
	OK      Color
	Address Color
	Muted   Color
}

// ANSI is the scheme used on color terminals.
func ANSI() Scheme {
	return Scheme{
		Heading: Bold,
		Error:   Red,
		Warning: Yellow,
		OK:      Green,
		Address: Cyan,
		Muted:   Gray,
	}
}

// Plain is the scheme that leaves text untouched.
func Plain() Scheme {
	return Scheme{
		Heading: None,
		Error:   None,
		Warning: None,
		OK:      None,
		Address: None,
		Muted:   None,
	}
}

// For returns ANSI when enabled is true, Plain otherwise.
func For(enabled bool) Scheme {
	if enabled {
		return ANSI()
	}
	return Plain()
}

// Package session mediates all interaction with the EZCAD2 application.
// A Controller owns every live session and serializes command delivery;
// the OS-level mechanics live behind the Driver capability, with a real
// win32 implementation on Windows and a bookkeeping simulation elsewhere.
package session

import (
	"time"
)

// Window is an opaque reference to the external application's main window,
// owned by the driver that produced it.
type Window interface{}

// Handle represents one live instance of the controlled application.
// Handles are exclusively owned by the Controller; callers interact through
// window ids, never by retaining a Handle.
type Handle struct {
	WindowID     string
	ArtifactPath string
	StartedAt    time.Time

	win Window
}

// Driver is the platform capability the Controller drives sessions through.
// Implementations: the win32 driver on Windows, SimDriver everywhere the
// real automation layer is unavailable. All methods are best-effort by
// nature; the underlying application offers no completion signals.
type Driver interface {
	// Name identifies the driver variant for logging
	Name() string

	// Preflight validates that a session can be started: the executable
	// exists and, when multiple instances are disallowed, no matching
	// process is already running on the host.
	Preflight(exePath string, allowMultiple bool) error

	// Launch spawns the external process, optionally opening an artifact
	Launch(exePath, artifactPath string) error

	// Connect makes one attempt to dismiss any startup license/agreement
	// dialog and locate the main window whose title derives from the
	// artifact name. Called repeatedly by the Controller's retry loop.
	Connect(artifactPath string) (Window, error)

	// EnsureVisible restores and focuses the window, waiting for the focus
	// transition to settle. Keystrokes to an unfocused or minimized window
	// are undefined behavior in the OS automation layer.
	EnsureVisible(win Window) error

	// SendKeys delivers a synthetic key sequence to the window
	SendKeys(win Window, sequence string) error

	// Alive reports whether the window's process is still running
	Alive(win Window) bool

	// RequestClose asks the window to close gracefully and dismisses any
	// resulting save prompt with a cancel keystroke.
	RequestClose(win Window) error
}

// commandKeys is the closed set of recognized commands and the key
// sequences they map to.
var commandKeys = map[string]string{
	"red":  "{F1}",
	"mark": "{F2}",
}

// Commands returns the recognized command names
func Commands() []string {
	names := make([]string, 0, len(commandKeys))
	for name := range commandKeys {
		names = append(names, name)
	}
	return names
}

// Package errors provides error handling for the automation system.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for operator-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check taxonomy
//	if errors.Is(err, errors.ErrSessionNotFound) {
//	    // handle unknown session
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf

	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the automation subsystems. Use with errors.Is() for
// type-safe checking; wrap with errors.Wrap() to add context while
// preserving the kind.
var (
	// ErrInvalidDirectory indicates the watch directory does not exist
	ErrInvalidDirectory = New("invalid directory")

	// ErrAlreadyRunning indicates the external application is already running
	// and multiple instances are disabled
	ErrAlreadyRunning = New("already running")

	// ErrConnectFailed indicates the external application's main window could
	// not be located within the retry budget
	ErrConnectFailed = New("connect failed")

	// ErrSessionNotFound indicates the window id does not match any tracked session
	ErrSessionNotFound = New("session not found")

	// ErrProcessGone indicates the external process exited underneath a session
	ErrProcessGone = New("process gone")

	// ErrUnknownCommand indicates a command outside the recognized set
	ErrUnknownCommand = New("unknown command")

	// ErrNotCancelable indicates a cancel on a job that is not PENDING
	ErrNotCancelable = New("not cancelable")

	// ErrLoadFailed indicates a spreadsheet could not be loaded
	ErrLoadFailed = New("load failed")

	// ErrNoArtifactConfigured indicates the executable path is unset or missing
	ErrNoArtifactConfigured = New("no artifact configured")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

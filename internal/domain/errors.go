package domain

import (
	"errors"
)

// Exit codes reported by the CLI.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitEmpty   = 10
	ExitNoDebug = 11
	ExitNoABI   = 12
)

var (
	// ErrReportExists is returned when the report directory is already present
	// and no report rebuild was requested. It is informational.
	ErrReportExists = errors.New("report already exists")
	// ErrEmptyDumps is returned when every ABI dump of a side is empty or invalid.
	ErrEmptyDumps = errors.New("all ABI dumps are empty or invalid")
	// ErrNoDebugInfo is returned when a debug package holds no debug info files.
	ErrNoDebugInfo = errors.New("debuginfo files are not found")
	// ErrNoObjects is returned when a release package holds no shared objects.
	ErrNoObjects = errors.New("shared objects are not found")
	// ErrNoReports is returned when every mapped pair failed to compare.
	ErrNoReports = errors.New("failed to create reports for objects")

	// ErrEmptyDump is returned for a dump whose SymbolInfo is empty.
	ErrEmptyDump = errors.New("empty ABI dump")
	// ErrUnsupportedLanguage is returned for dumps of anything but C and C++.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ExitCode maps an error returned by the workflow to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, ErrReportExists):
		return ExitOK
	case errors.Is(err, ErrEmptyDumps):
		return ExitEmpty
	case errors.Is(err, ErrNoDebugInfo):
		return ExitNoDebug
	case errors.Is(err, ErrNoObjects):
		return ExitNoABI
	default:
		return ExitError
	}
}

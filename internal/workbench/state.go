// Package workbench drives the calculator form: edits, calculation, exports
// and the sign-in prompt.
package workbench

import "errors"

type State string

const (
	StateClosed       State = "closed"
	StateOpen         State = "open"
	StateCalculated   State = "calculated"
	StateExporting    State = "exporting"
	StateAuthRequired State = "auth_required"
)

var (
	ErrClosed           = errors.New("calculator_closed")
	ErrNotCalculated    = errors.New("not_calculated")
	ErrAuthRequired     = errors.New("auth_required")
	ErrExportInProgress = errors.New("export_in_progress")
)

package domain

import "errors"

var (
	// ErrUnauthenticated is returned before any write when no owner is known.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingReportID means the store accepted the row but returned no id.
	ErrMissingReportID = errors.New("missing_report_id")
)

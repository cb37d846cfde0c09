package domain

import "errors"

var (
	// ErrDraftAbsent means nothing is stored in the slot. It is not a failure.
	ErrDraftAbsent = errors.New("draft_absent")
	// ErrDraftCorrupt wraps a decode failure of stored bytes.
	ErrDraftCorrupt  = errors.New("draft_corrupt")
	ErrUnknownField  = errors.New("unknown_field")
	ErrRowOutOfRange = errors.New("row_out_of_range")
	ErrInvalidSlot   = errors.New("invalid_slot")
	ErrInvalidText   = errors.New("invalid_text")
)

package domain

import "context"

// Store persists drafts by slot name.
type Store interface {
	Save(ctx context.Context, slot string, draft FormDraft) error
	// Load returns ErrDraftAbsent when the slot is empty and an error
	// wrapping ErrDraftCorrupt when the stored bytes do not decode.
	Load(ctx context.Context, slot string) (FormDraft, error)
	Clear(ctx context.Context, slot string) error
}

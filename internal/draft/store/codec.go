// Package store implements draft persistence backends.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/cbam/internal/draft/domain"
)

// Encode renders a draft as its field-name keyed JSON document.
func Encode(d domain.FormDraft) ([]byte, error) {
	return json.Marshal(d.Clone())
}

// Decode parses stored bytes. Failures wrap domain.ErrDraftCorrupt.
func Decode(data []byte) (domain.FormDraft, error) {
	var d domain.FormDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.FormDraft{}, fmt.Errorf("%w: %v", domain.ErrDraftCorrupt, err)
	}
	return d.Clone(), nil
}

func checkSlot(slot string) error {
	if slot == "" || len(slot) > 128 {
		return domain.ErrInvalidSlot
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return domain.ErrInvalidSlot
		}
	}
	return nil
}

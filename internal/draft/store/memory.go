package store

import (
	"context"
	"sync"

	"github.com/smallbiznis/cbam/internal/draft/domain"
)

// Memory keeps encoded drafts in process memory.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, slot string, d domain.FormDraft) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	data, err := Encode(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[slot] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, slot string) (domain.FormDraft, error) {
	if err := checkSlot(slot); err != nil {
		return domain.FormDraft{}, err
	}
	m.mu.RLock()
	data, ok := m.slots[slot]
	m.mu.RUnlock()
	if !ok {
		return domain.FormDraft{}, domain.ErrDraftAbsent
	}
	return Decode(data)
}

func (m *Memory) Clear(_ context.Context, slot string) error {
	m.mu.Lock()
	delete(m.slots, slot)
	m.mu.Unlock()
	return nil
}

// SetRaw stores bytes as-is, bypassing the encoder.
func (m *Memory) SetRaw(slot string, data []byte) {
	m.mu.Lock()
	m.slots[slot] = append([]byte(nil), data...)
	m.mu.Unlock()
}

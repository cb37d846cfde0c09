package domain

import (
	"context"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
)

// Restored is a draft loaded back into the form together with the fresh
// classification of its CN code.
type Restored struct {
	Draft          FormDraft
	Classification emissiondomain.Classification
}

type Service interface {
	Save(ctx context.Context, slot string, d FormDraft) error
	Load(ctx context.Context, slot string) (FormDraft, error)
	Clear(ctx context.Context, slot string) error
	Restore(ctx context.Context, slot string) (Restored, error)
}

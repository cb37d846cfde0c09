package service

import (
	"context"
	"errors"

	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Store draftdomain.Store
}

type Service struct {
	log   *zap.Logger
	store draftdomain.Store
}

func New(p Params) draftdomain.Service {
	return &Service{
		log:   p.Log.Named("draft.service"),
		store: p.Store,
	}
}

func (s *Service) Save(ctx context.Context, slot string, d draftdomain.FormDraft) error {
	if err := s.store.Save(ctx, slot, d); err != nil {
		s.log.Warn("failed to save draft", zap.String("slot", slot), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Load(ctx context.Context, slot string) (draftdomain.FormDraft, error) {
	return s.store.Load(ctx, slot)
}

func (s *Service) Clear(ctx context.Context, slot string) error {
	return s.store.Clear(ctx, slot)
}

// Restore loads the slot into a form. Absence yields the blank form. A corrupt
// payload also yields the blank form, together with the decode error.
func (s *Service) Restore(ctx context.Context, slot string) (draftdomain.Restored, error) {
	d, err := s.store.Load(ctx, slot)
	switch {
	case err == nil:
	case errors.Is(err, draftdomain.ErrDraftAbsent):
		d = draftdomain.Empty()
	case errors.Is(err, draftdomain.ErrDraftCorrupt):
		s.log.Warn("discarding corrupt draft", zap.String("slot", slot), zap.Error(err))
		empty := draftdomain.Empty()
		return draftdomain.Restored{
			Draft:          empty,
			Classification: emissionservice.Validate(empty.CNCode),
		}, err
	default:
		return draftdomain.Restored{}, err
	}

	return draftdomain.Restored{
		Draft:          d,
		Classification: emissionservice.Validate(d.CNCode),
	}, nil
}

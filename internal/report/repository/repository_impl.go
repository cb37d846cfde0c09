package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/cbam/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

// Insert assigns a fresh id when the report has none.
func (r *repo) Insert(ctx context.Context, report *domain.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]domain.Report, error) {
	reports := make([]domain.Report, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

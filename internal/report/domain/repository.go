package domain

import "context"

type Repository interface {
	Insert(ctx context.Context, report *Report) error
	ListByUser(ctx context.Context, userID string) ([]Report, error)
}

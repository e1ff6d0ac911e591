package repository

import (
	"context"

	"github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	"gorm.io/gorm"
)

type fallbackSource struct {
	db   *gorm.DB
	repo domain.Repository
}

// NewFallbackSource reads the active fallback_lawyers rows, ordered by display_order.
func NewFallbackSource(db *gorm.DB, repo domain.Repository) domain.FallbackSource {
	return &fallbackSource{db: db, repo: repo}
}

func (f *fallbackSource) ActiveFallback(ctx context.Context) ([]domain.Lawyer, error) {
	return f.repo.ListActiveFallback(ctx, f.db)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Plan, error)
	ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]snowflake.ID, error)

	// ListFeatures returns features grouped by plan id, each list in row order.
	ListFeatures(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID) (map[snowflake.ID][]Feature, error)
	MaxFeatureSortOrder(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int, error)
	DeleteFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID) error
	InsertFeatures(ctx context.Context, db *gorm.DB, features []Feature) error
}

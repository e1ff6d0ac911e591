package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	LawyerIDsByOfficeZip(ctx context.Context, db *gorm.DB, zips []string) ([]snowflake.ID, error)
	LawyerIDsByFirmZip(ctx context.Context, db *gorm.DB, zips []string) ([]snowflake.ID, error)
	LawyerIDsByServiceArea(ctx context.Context, db *gorm.DB, marketID snowflake.ID) ([]snowflake.ID, error)

	// FindLawyers returns the lawyers in the order of ids. Unknown ids are skipped.
	FindLawyers(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Lawyer, error)
	FindLawyer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lawyer, error)
	ListTierOverrides(ctx context.Context, db *gorm.DB, marketID snowflake.ID, lawyerIDs []snowflake.ID) ([]DmaSubscription, error)
	ListActiveFallback(ctx context.Context, db *gorm.DB) ([]Lawyer, error)

	ListLawyerMarkets(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) ([]LawyerMarket, error)
	DeleteServiceAreas(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) error
	DeleteDmaSubscriptions(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) error
	InsertServiceAreas(ctx context.Context, db *gorm.DB, areas []ServiceArea) error
	InsertDmaSubscriptions(ctx context.Context, db *gorm.DB, subs []DmaSubscription) error
}

// FallbackSource supplies the admin-maintained default lawyer list.
type FallbackSource interface {
	ActiveFallback(ctx context.Context) ([]Lawyer, error)
}

type LawyerMarket struct {
	MarketID         snowflake.ID `gorm:"column:dma_id"`
	Code             int          `gorm:"column:code"`
	Name             string       `gorm:"column:name"`
	Slug             string       `gorm:"column:slug"`
	SubscriptionType *string      `gorm:"column:subscription_type"`
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertGroup(ctx context.Context, db *gorm.DB, group *Group) error
	FindGroup(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Group, error)
	ListGroups(ctx context.Context, db *gorm.DB) ([]Group, error)
	UpdateGroup(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteGroup(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindMembership(ctx context.Context, db *gorm.DB, marketID snowflake.ID) (*Membership, error)
	ListGroupMarkets(ctx context.Context, db *gorm.DB, groupIDs []snowflake.ID) ([]GroupMarket, error)
	ListAssignments(ctx context.Context, db *gorm.DB) ([]Assignment, error)
	InsertMemberships(ctx context.Context, db *gorm.DB, memberships []Membership) error
	DeleteMembershipsByMarket(ctx context.Context, db *gorm.DB, marketIDs []snowflake.ID) error
	// DeleteGroupMemberships removes the group's memberships, limited to
	// marketIDs when any are given.
	DeleteGroupMemberships(ctx context.Context, db *gorm.DB, groupID snowflake.ID, marketIDs []snowflake.ID) error

	FindOverride(ctx context.Context, db *gorm.DB, groupID, planID snowflake.ID) (*Override, error)
	ListOverrides(ctx context.Context, db *gorm.DB, groupIDs []snowflake.ID, activeOnly bool) ([]Override, error)
	InsertOverride(ctx context.Context, db *gorm.DB, override *Override) error
	SaveOverride(ctx context.Context, db *gorm.DB, override *Override) error
	DeleteOverride(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteGroupOverrides(ctx context.Context, db *gorm.DB, groupID snowflake.ID) error

	ListOverrideFeatures(ctx context.Context, db *gorm.DB, overrideIDs []snowflake.ID) (map[snowflake.ID][]OverrideFeature, error)
	InsertOverrideFeatures(ctx context.Context, db *gorm.DB, features []OverrideFeature) error
	DeleteOverrideFeatures(ctx context.Context, db *gorm.DB, overrideIDs []snowflake.ID) error
	DeleteGroupOverrideFeatures(ctx context.Context, db *gorm.DB, groupID snowflake.ID) error

	// DeleteMarketExceptions removes legacy per-market overrides and their features.
	DeleteMarketExceptions(ctx context.Context, db *gorm.DB, marketIDs []snowflake.ID) (int64, error)
}

type GroupMarket struct {
	GroupID  snowflake.ID `gorm:"column:group_id"`
	MarketID snowflake.ID `gorm:"column:dma_id"`
	Code     int          `gorm:"column:code"`
	Name     string       `gorm:"column:name"`
}

type Assignment struct {
	MarketID  snowflake.ID  `gorm:"column:dma_id"`
	Code      int           `gorm:"column:code"`
	Name      string        `gorm:"column:name"`
	GroupID   *snowflake.ID `gorm:"column:group_id"`
	GroupName *string       `gorm:"column:group_name"`
}

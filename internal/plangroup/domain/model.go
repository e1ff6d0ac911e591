package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Group is a named set of markets sharing plan overrides.
type Group struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null"`
	Description *string      `gorm:"type:text"`
	SortOrder   int          `gorm:"not null;default:0"`
	IsActive    bool         `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Group) TableName() string { return "subscription_plan_groups" }

// Membership places a market in a group. A market has at most one membership;
// the assignment operations keep it that way.
type Membership struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	GroupID   snowflake.ID `gorm:"column:group_id;not null;index"`
	MarketID  snowflake.ID `gorm:"column:dma_id;not null;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Membership) TableName() string { return "subscription_plan_group_memberships" }

// Override replaces plan fields for every market in a group. Nil fields inherit.
type Override struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	GroupID           snowflake.ID `gorm:"column:group_id;not null;uniqueIndex:ux_group_overrides_group_plan"`
	PlanID            snowflake.ID `gorm:"column:plan_id;not null;uniqueIndex:ux_group_overrides_group_plan"`
	PriceCents        *int64       `gorm:"column:price_cents"`
	PriceDisplay      *string      `gorm:"type:text"`
	Description       *string      `gorm:"type:text"`
	HasCustomFeatures bool         `gorm:"not null"`
	IsActive          bool         `gorm:"not null"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Override) TableName() string { return "subscription_plan_group_overrides" }

type OverrideFeature struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	OverrideID    snowflake.ID `gorm:"column:override_id;not null;index"`
	FeatureName   string       `gorm:"type:text;not null"`
	FeatureValue  *string      `gorm:"type:text"`
	IsIncluded    bool         `gorm:"not null"`
	IsHighlighted bool         `gorm:"not null"`
	SortOrder     int          `gorm:"not null;default:0"`
}

func (OverrideFeature) TableName() string { return "subscription_plan_group_override_features" }

// MarketException is a legacy per-market override. Resolution ignores it;
// it is only ever deleted.
type MarketException struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	PlanID            snowflake.ID `gorm:"column:plan_id;not null;index"`
	MarketID          snowflake.ID `gorm:"column:dma_id;not null;index"`
	PriceCents        *int64       `gorm:"column:price_cents"`
	PriceDisplay      *string      `gorm:"type:text"`
	Description       *string      `gorm:"type:text"`
	HasCustomFeatures bool         `gorm:"not null"`
	IsActive          bool         `gorm:"not null"`
}

func (MarketException) TableName() string { return "subscription_plan_dma_overrides" }

type MarketExceptionFeature struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OverrideID   snowflake.ID `gorm:"column:override_id;not null;index"`
	FeatureName  string       `gorm:"type:text;not null"`
	FeatureValue *string      `gorm:"type:text"`
	SortOrder    int          `gorm:"not null;default:0"`
}

func (MarketExceptionFeature) TableName() string { return "subscription_plan_dma_override_features" }

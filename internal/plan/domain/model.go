package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Plan struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Name          string       `gorm:"type:text;not null"`
	DisplayName   string       `gorm:"type:text;not null"`
	PriceCents    int64        `gorm:"not null;default:0"`
	PriceDisplay  string       `gorm:"type:text;not null"`
	BillingPeriod string       `gorm:"type:text;not null"`
	Description   *string      `gorm:"type:text"`
	IsRecommended bool         `gorm:"not null"`
	SortOrder     int          `gorm:"not null;default:0"`
	IsActive      bool         `gorm:"not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "subscription_plans" }

type Feature struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	PlanID        snowflake.ID `gorm:"column:plan_id;not null;index"`
	FeatureName   string       `gorm:"type:text;not null"`
	FeatureValue  *string      `gorm:"type:text"`
	IsIncluded    bool         `gorm:"not null"`
	IsHighlighted bool         `gorm:"not null"`
	SortOrder     int          `gorm:"not null;default:0"`
}

func (Feature) TableName() string { return "subscription_plan_features" }

// PlanWithFeatures is a plan and its stored feature rows, unfiltered.
type PlanWithFeatures struct {
	Plan     Plan
	Features []Feature
}

package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is a subscription level. Ordering is free < basic < enhanced < premium.
type Tier string

const (
	TierFree     Tier = "free"
	TierBasic    Tier = "basic"
	TierEnhanced Tier = "enhanced"
	TierPremium  Tier = "premium"
)

var tierRank = map[Tier]int{
	TierFree:     0,
	TierBasic:    1,
	TierEnhanced: 2,
	TierPremium:  3,
}

// ParseTier normalises a stored tier value. Unknown or empty values are free.
func ParseTier(raw string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tierRank[t]; ok {
		return t
	}
	return TierFree
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

func (t Tier) Rank() int {
	return tierRank[t]
}

type LawFirm struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	Name    string       `gorm:"type:text;not null"`
	ZipCode *string      `gorm:"column:zip_code;type:varchar(10);index"`
}

func (LawFirm) TableName() string { return "law_firms" }

type Lawyer struct {
	ID               snowflake.ID  `gorm:"primaryKey"`
	FirstName        string        `gorm:"type:text;not null"`
	LastName         string        `gorm:"type:text;not null"`
	Slug             string        `gorm:"type:text;not null"`
	OfficeZipCode    *string       `gorm:"column:office_zip_code;type:varchar(10);index"`
	LawFirmID        *snowflake.ID `gorm:"column:law_firm_id;index"`
	SubscriptionType *string       `gorm:"column:subscription_type;type:text"`
}

func (Lawyer) TableName() string { return "lawyers" }

// DefaultTier is the lawyer's own tier, before any market override.
func (l Lawyer) DefaultTier() Tier {
	if l.SubscriptionType == nil {
		return TierFree
	}
	return ParseTier(*l.SubscriptionType)
}

// ServiceArea is an explicit opt-in to a market, independent of office location.
type ServiceArea struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	LawyerID  snowflake.ID `gorm:"column:lawyer_id;not null;uniqueIndex:ux_lawyer_service_areas"`
	MarketID  snowflake.ID `gorm:"column:dma_id;not null;uniqueIndex:ux_lawyer_service_areas;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ServiceArea) TableName() string { return "lawyer_service_areas" }

// DmaSubscription overrides a lawyer's tier inside one market.
type DmaSubscription struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	LawyerID         snowflake.ID `gorm:"column:lawyer_id;not null;uniqueIndex:ux_lawyer_dma_subscriptions"`
	MarketID         snowflake.ID `gorm:"column:dma_id;not null;uniqueIndex:ux_lawyer_dma_subscriptions"`
	SubscriptionType string       `gorm:"column:subscription_type;type:text;not null"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DmaSubscription) TableName() string { return "lawyer_dma_subscriptions" }

type FallbackLawyer struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	LawyerID     snowflake.ID `gorm:"column:lawyer_id;not null;index"`
	DisplayOrder int          `gorm:"not null;default:0"`
	IsActive     bool         `gorm:"not null"`
}

func (FallbackLawyer) TableName() string { return "fallback_lawyers" }

// SubscriptionType is a tier definition row. Active rows drive tier grouping.
type SubscriptionType struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_subscription_types_name"`
	DisplayName string       `gorm:"type:text;not null"`
	SortOrder   int          `gorm:"not null;default:0"`
	IsActive    bool         `gorm:"not null"`
}

func (SubscriptionType) TableName() string { return "subscription_types" }

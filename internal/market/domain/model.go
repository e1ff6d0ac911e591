package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type State struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Name         string       `gorm:"type:text;not null"`
	Abbreviation string       `gorm:"type:varchar(2);not null;index"`
}

func (State) TableName() string { return "states" }

type City struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	Name    string       `gorm:"type:text;not null;index"`
	StateID snowflake.ID `gorm:"column:state_id;not null;index"`
}

func (City) TableName() string { return "cities" }

// ZipCode is not unique across cities; lookups take the first mapped row.
type ZipCode struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	ZipCode string       `gorm:"column:zip_code;type:varchar(5);not null;index"`
	CityID  snowflake.ID `gorm:"column:city_id;not null;index"`
}

func (ZipCode) TableName() string { return "zip_codes" }

// Market is a Designated Marketing Area.
type Market struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Code      int          `gorm:"not null;uniqueIndex:ux_dmas_code"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Market) TableName() string { return "dmas" }

type ZipCodeMarket struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ZipCodeID snowflake.ID `gorm:"column:zip_code_id;not null;uniqueIndex:ux_zip_code_dmas_zip"`
	MarketID  snowflake.ID `gorm:"column:dma_id;not null;index"`
}

func (ZipCodeMarket) TableName() string { return "zip_code_dmas" }

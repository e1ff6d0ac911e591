package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Market, error)
	FindByZip(ctx context.Context, db *gorm.DB, zip string) (*Market, error)
	List(ctx context.Context, db *gorm.DB) ([]Market, error)
	ListZipCodes(ctx context.Context, db *gorm.DB, marketID snowflake.ID) ([]string, error)
	ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]snowflake.ID, error)

	FindStateByAbbreviation(ctx context.Context, db *gorm.DB, abbreviation string) (*State, error)
	FindStateByName(ctx context.Context, db *gorm.DB, name string) (*State, error)
	SearchState(ctx context.Context, db *gorm.DB, fragment string) (*State, error)

	FindCityByName(ctx context.Context, db *gorm.DB, name string, stateID *snowflake.ID) (*City, error)
	SearchCity(ctx context.Context, db *gorm.DB, fragment string, stateID *snowflake.ID) (*City, error)
	FindByCity(ctx context.Context, db *gorm.DB, cityID snowflake.ID) (*Market, error)
	FindByState(ctx context.Context, db *gorm.DB, stateID snowflake.ID) (*Market, error)

	SuggestZipCodes(ctx context.Context, db *gorm.DB, prefix string, limit int) ([]ZipSuggestion, error)
}

type ZipSuggestion struct {
	ZipCode           string `json:"zip_code"`
	City              string `json:"city"`
	StateAbbreviation string `json:"state"`
}

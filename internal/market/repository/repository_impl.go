package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/market/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Market, error) {
	var m domain.Market
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, slug, created_at, updated_at FROM dmas WHERE id = ?`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindByZip(ctx context.Context, db *gorm.DB, zip string) (*domain.Market, error) {
	var m domain.Market
	err := db.WithContext(ctx).Raw(
		`SELECT d.id, d.code, d.name, d.slug, d.created_at, d.updated_at
		 FROM zip_codes z
		 JOIN zip_code_dmas zd ON zd.zip_code_id = z.id
		 JOIN dmas d ON d.id = zd.dma_id
		 WHERE z.zip_code = ?
		 ORDER BY z.id
		 LIMIT 1`,
		zip,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Market, error) {
	var items []domain.Market
	if err := db.WithContext(ctx).
		Model(&domain.Market{}).
		Order("name ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListZipCodes(ctx context.Context, db *gorm.DB, marketID snowflake.ID) ([]string, error) {
	var zips []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT z.zip_code
		 FROM zip_code_dmas zd
		 JOIN zip_codes z ON z.id = zd.zip_code_id
		 WHERE zd.dma_id = ?
		 ORDER BY z.zip_code`,
		marketID,
	).Scan(&zips).Error
	if err != nil {
		return nil, err
	}
	return zips, nil
}

func (r *repo) ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Market{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repo) FindStateByAbbreviation(ctx context.Context, db *gorm.DB, abbreviation string) (*domain.State, error) {
	return r.firstState(ctx, db, "UPPER(abbreviation) = ?", strings.ToUpper(abbreviation))
}

func (r *repo) FindStateByName(ctx context.Context, db *gorm.DB, name string) (*domain.State, error) {
	return r.firstState(ctx, db, "LOWER(name) = ?", strings.ToLower(name))
}

func (r *repo) SearchState(ctx context.Context, db *gorm.DB, fragment string) (*domain.State, error) {
	return r.firstState(ctx, db, "LOWER(name) LIKE ?", containsPattern(fragment))
}

func (r *repo) firstState(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.State, error) {
	var items []domain.State
	err := db.WithContext(ctx).
		Model(&domain.State{}).
		Where(where, arg).
		Order("name ASC").
		Order("id ASC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) FindCityByName(ctx context.Context, db *gorm.DB, name string, stateID *snowflake.ID) (*domain.City, error) {
	return r.firstCity(ctx, db, "LOWER(name) = ?", strings.ToLower(name), stateID)
}

func (r *repo) SearchCity(ctx context.Context, db *gorm.DB, fragment string, stateID *snowflake.ID) (*domain.City, error) {
	return r.firstCity(ctx, db, "LOWER(name) LIKE ?", containsPattern(fragment), stateID)
}

func (r *repo) firstCity(ctx context.Context, db *gorm.DB, where string, arg any, stateID *snowflake.ID) (*domain.City, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.City{}).
		Where(where, arg)
	if stateID != nil {
		stmt = stmt.Where("state_id = ?", *stateID)
	}

	var items []domain.City
	if err := stmt.Order("name ASC").Order("id ASC").Limit(1).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) FindByCity(ctx context.Context, db *gorm.DB, cityID snowflake.ID) (*domain.Market, error) {
	var m domain.Market
	err := db.WithContext(ctx).Raw(
		`SELECT d.id, d.code, d.name, d.slug, d.created_at, d.updated_at
		 FROM zip_codes z
		 JOIN zip_code_dmas zd ON zd.zip_code_id = z.id
		 JOIN dmas d ON d.id = zd.dma_id
		 WHERE z.city_id = ?
		 ORDER BY z.zip_code, z.id
		 LIMIT 1`,
		cityID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindByState(ctx context.Context, db *gorm.DB, stateID snowflake.ID) (*domain.Market, error) {
	var m domain.Market
	err := db.WithContext(ctx).Raw(
		`SELECT d.id, d.code, d.name, d.slug, d.created_at, d.updated_at
		 FROM zip_codes z
		 JOIN cities c ON c.id = z.city_id
		 JOIN zip_code_dmas zd ON zd.zip_code_id = z.id
		 JOIN dmas d ON d.id = zd.dma_id
		 WHERE c.state_id = ?
		 ORDER BY z.zip_code, z.id
		 LIMIT 1`,
		stateID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) SuggestZipCodes(ctx context.Context, db *gorm.DB, prefix string, limit int) ([]domain.ZipSuggestion, error) {
	var items []domain.ZipSuggestion
	err := db.WithContext(ctx).Raw(
		`SELECT z.zip_code AS zip_code, c.name AS city, s.abbreviation AS state_abbreviation
		 FROM zip_codes z
		 JOIN cities c ON c.id = z.city_id
		 JOIN states s ON s.id = c.state_id
		 WHERE z.zip_code LIKE ?
		 ORDER BY z.zip_code, z.id
		 LIMIT ?`,
		sanitizeLike(prefix)+"%",
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func containsPattern(fragment string) string {
	return "%" + strings.ToLower(sanitizeLike(fragment)) + "%"
}

// sanitizeLike drops LIKE metacharacters; none of them occur in place names or zip codes.
func sanitizeLike(value string) string {
	return strings.NewReplacer("%", "", "_", "", `\`, "").Replace(value)
}

package repository

import (
	"context"
	"database/sql"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var rows []domain.Plan
	if err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Plan, error) {
	stmt := db.WithContext(ctx).Model(&domain.Plan{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var rows []domain.Plan
	if err := stmt.Order("sort_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []snowflake.ID
	if err := db.WithContext(ctx).Model(&domain.Plan{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repo) ListFeatures(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID) (map[snowflake.ID][]domain.Feature, error) {
	out := make(map[snowflake.ID][]domain.Feature, len(planIDs))
	if len(planIDs) == 0 {
		return out, nil
	}
	var rows []domain.Feature
	if err := db.WithContext(ctx).
		Where("plan_id IN ?", planIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PlanID] = append(out[row.PlanID], row)
	}
	return out, nil
}

func (r *repo) MaxFeatureSortOrder(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int, error) {
	var highest sql.NullInt64
	err := db.WithContext(ctx).
		Model(&domain.Feature{}).
		Where("plan_id = ?", planID).
		Select("MAX(sort_order)").
		Row().
		Scan(&highest)
	if err != nil {
		return 0, err
	}
	return int(highest.Int64), nil
}

func (r *repo) DeleteFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID) error {
	return db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&domain.Feature{}).Error
}

func (r *repo) InsertFeatures(ctx context.Context, db *gorm.DB, features []domain.Feature) error {
	if len(features) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&features).Error
}

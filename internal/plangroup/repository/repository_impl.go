package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertGroup(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Create(group).Error
}

func (r *repo) FindGroup(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Group, error) {
	var rows []domain.Group
	if err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListGroups(ctx context.Context, db *gorm.DB) ([]domain.Group, error) {
	var rows []domain.Group
	if err := db.WithContext(ctx).Order("sort_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateGroup(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.Group{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) DeleteGroup(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Group{}).Error
}

func (r *repo) FindMembership(ctx context.Context, db *gorm.DB, marketID snowflake.ID) (*domain.Membership, error) {
	var rows []domain.Membership
	err := db.WithContext(ctx).
		Where("dma_id = ?", marketID).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListGroupMarkets(ctx context.Context, db *gorm.DB, groupIDs []snowflake.ID) ([]domain.GroupMarket, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var rows []domain.GroupMarket
	err := db.WithContext(ctx).Raw(
		`SELECT m.group_id, d.id AS dma_id, d.code, d.name
		 FROM subscription_plan_group_memberships m
		 JOIN dmas d ON d.id = m.dma_id
		 WHERE m.group_id IN ?
		 ORDER BY d.name, d.id`,
		groupIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListAssignments(ctx context.Context, db *gorm.DB) ([]domain.Assignment, error) {
	var rows []domain.Assignment
	err := db.WithContext(ctx).Raw(
		`SELECT d.id AS dma_id, d.code, d.name, m.group_id, g.name AS group_name
		 FROM dmas d
		 LEFT JOIN subscription_plan_group_memberships m ON m.dma_id = d.id
		 LEFT JOIN subscription_plan_groups g ON g.id = m.group_id
		 ORDER BY d.name, d.id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertMemberships(ctx context.Context, db *gorm.DB, memberships []domain.Membership) error {
	if len(memberships) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&memberships).Error
}

func (r *repo) DeleteMembershipsByMarket(ctx context.Context, db *gorm.DB, marketIDs []snowflake.ID) error {
	if len(marketIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("dma_id IN ?", marketIDs).Delete(&domain.Membership{}).Error
}

func (r *repo) DeleteGroupMemberships(ctx context.Context, db *gorm.DB, groupID snowflake.ID, marketIDs []snowflake.ID) error {
	stmt := db.WithContext(ctx).Where("group_id = ?", groupID)
	if len(marketIDs) > 0 {
		stmt = stmt.Where("dma_id IN ?", marketIDs)
	}
	return stmt.Delete(&domain.Membership{}).Error
}

func (r *repo) FindOverride(ctx context.Context, db *gorm.DB, groupID, planID snowflake.ID) (*domain.Override, error) {
	var rows []domain.Override
	err := db.WithContext(ctx).
		Where("group_id = ? AND plan_id = ?", groupID, planID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListOverrides(ctx context.Context, db *gorm.DB, groupIDs []snowflake.ID, activeOnly bool) ([]domain.Override, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	stmt := db.WithContext(ctx).Where("group_id IN ?", groupIDs)
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var rows []domain.Override
	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertOverride(ctx context.Context, db *gorm.DB, override *domain.Override) error {
	return db.WithContext(ctx).Create(override).Error
}

// SaveOverride writes every column, so nil pointers clear stored values.
func (r *repo) SaveOverride(ctx context.Context, db *gorm.DB, override *domain.Override) error {
	return db.WithContext(ctx).Save(override).Error
}

func (r *repo) DeleteOverride(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Override{}).Error
}

func (r *repo) DeleteGroupOverrides(ctx context.Context, db *gorm.DB, groupID snowflake.ID) error {
	return db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&domain.Override{}).Error
}

func (r *repo) ListOverrideFeatures(ctx context.Context, db *gorm.DB, overrideIDs []snowflake.ID) (map[snowflake.ID][]domain.OverrideFeature, error) {
	out := make(map[snowflake.ID][]domain.OverrideFeature, len(overrideIDs))
	if len(overrideIDs) == 0 {
		return out, nil
	}
	var rows []domain.OverrideFeature
	if err := db.WithContext(ctx).
		Where("override_id IN ?", overrideIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OverrideID] = append(out[row.OverrideID], row)
	}
	return out, nil
}

func (r *repo) InsertOverrideFeatures(ctx context.Context, db *gorm.DB, features []domain.OverrideFeature) error {
	if len(features) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&features).Error
}

func (r *repo) DeleteOverrideFeatures(ctx context.Context, db *gorm.DB, overrideIDs []snowflake.ID) error {
	if len(overrideIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("override_id IN ?", overrideIDs).Delete(&domain.OverrideFeature{}).Error
}

func (r *repo) DeleteGroupOverrideFeatures(ctx context.Context, db *gorm.DB, groupID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("override_id IN (?)", db.Model(&domain.Override{}).Select("id").Where("group_id = ?", groupID)).
		Delete(&domain.OverrideFeature{}).Error
}

func (r *repo) DeleteMarketExceptions(ctx context.Context, db *gorm.DB, marketIDs []snowflake.ID) (int64, error) {
	if len(marketIDs) == 0 {
		return 0, nil
	}
	err := db.WithContext(ctx).
		Where("override_id IN (?)", db.Model(&domain.MarketException{}).Select("id").Where("dma_id IN ?", marketIDs)).
		Delete(&domain.MarketExceptionFeature{}).Error
	if err != nil {
		return 0, err
	}

	res := db.WithContext(ctx).Where("dma_id IN ?", marketIDs).Delete(&domain.MarketException{})
	return res.RowsAffected, res.Error
}

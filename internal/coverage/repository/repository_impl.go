package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	pkgrepo "github.com/smallbiznis/lawdirectory/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func NewSubscriptionTypeStore(db *gorm.DB) pkgrepo.Repository[domain.SubscriptionType] {
	return pkgrepo.ProvideStore[domain.SubscriptionType](db)
}

func (r *repo) LawyerIDsByOfficeZip(ctx context.Context, db *gorm.DB, zips []string) ([]snowflake.ID, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Lawyer{}).
		Where("office_zip_code IN ?", zips).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) LawyerIDsByFirmZip(ctx context.Context, db *gorm.DB, zips []string) ([]snowflake.ID, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT l.id
		 FROM lawyers l
		 JOIN law_firms f ON f.id = l.law_firm_id
		 WHERE f.zip_code IN ?
		 ORDER BY l.id`,
		zips,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) LawyerIDsByServiceArea(ctx context.Context, db *gorm.DB, marketID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.ServiceArea{}).
		Where("dma_id = ?", marketID).
		Order("lawyer_id ASC").
		Pluck("lawyer_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) FindLawyers(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Lawyer, error) {
	if len(ids) == 0 {
		return []domain.Lawyer{}, nil
	}
	var rows []domain.Lawyer
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]domain.Lawyer, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]domain.Lawyer, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *repo) FindLawyer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lawyer, error) {
	var rows []domain.Lawyer
	if err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListTierOverrides(ctx context.Context, db *gorm.DB, marketID snowflake.ID, lawyerIDs []snowflake.ID) ([]domain.DmaSubscription, error) {
	if len(lawyerIDs) == 0 {
		return nil, nil
	}
	var rows []domain.DmaSubscription
	err := db.WithContext(ctx).
		Where("dma_id = ? AND lawyer_id IN ?", marketID, lawyerIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListActiveFallback(ctx context.Context, db *gorm.DB) ([]domain.Lawyer, error) {
	var rows []domain.Lawyer
	err := db.WithContext(ctx).Raw(
		`SELECT l.*
		 FROM fallback_lawyers fl
		 JOIN lawyers l ON l.id = fl.lawyer_id
		 WHERE fl.is_active = ?
		 ORDER BY fl.display_order, fl.id`,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListLawyerMarkets(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) ([]domain.LawyerMarket, error) {
	var rows []domain.LawyerMarket
	err := db.WithContext(ctx).Raw(
		`SELECT d.id AS dma_id, d.code, d.name, d.slug, s.subscription_type
		 FROM lawyer_service_areas sa
		 JOIN dmas d ON d.id = sa.dma_id
		 LEFT JOIN lawyer_dma_subscriptions s ON s.lawyer_id = sa.lawyer_id AND s.dma_id = sa.dma_id
		 WHERE sa.lawyer_id = ?
		 ORDER BY d.name, d.id`,
		lawyerID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) DeleteServiceAreas(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) error {
	return db.WithContext(ctx).Where("lawyer_id = ?", lawyerID).Delete(&domain.ServiceArea{}).Error
}

func (r *repo) DeleteDmaSubscriptions(ctx context.Context, db *gorm.DB, lawyerID snowflake.ID) error {
	return db.WithContext(ctx).Where("lawyer_id = ?", lawyerID).Delete(&domain.DmaSubscription{}).Error
}

func (r *repo) InsertServiceAreas(ctx context.Context, db *gorm.DB, areas []domain.ServiceArea) error {
	if len(areas) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&areas).Error
}

func (r *repo) InsertDmaSubscriptions(ctx context.Context, db *gorm.DB, subs []domain.DmaSubscription) error {
	if len(subs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&subs).Error
}

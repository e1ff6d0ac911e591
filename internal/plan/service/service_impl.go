package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/plan/domain"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.PlanResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = name
	}
	priceDisplay := strings.TrimSpace(req.PriceDisplay)
	if priceDisplay == "" {
		priceDisplay = domain.DefaultPriceDisplay
	}
	billingPeriod := strings.TrimSpace(req.BillingPeriod)
	if billingPeriod == "" {
		billingPeriod = domain.DefaultBillingPeriod
	}

	plan := domain.Plan{
		ID:            s.genID.Generate(),
		Name:          name,
		DisplayName:   displayName,
		PriceCents:    req.PriceCents,
		PriceDisplay:  priceDisplay,
		BillingPeriod: billingPeriod,
		Description:   req.Description,
		IsRecommended: req.IsRecommended,
		SortOrder:     req.SortOrder,
		IsActive:      true,
	}
	if err := s.repo.Insert(ctx, s.db, &plan); err != nil {
		return nil, err
	}

	s.log.Info("subscription plan created", zap.String("plan_id", plan.ID.String()), zap.String("name", plan.Name))
	resp := toPlanResponse(plan, nil)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.PlanResponse, error) {
	return s.list(ctx, false)
}

func (s *Service) list(ctx context.Context, activeOnly bool) ([]domain.PlanResponse, error) {
	items, err := s.load(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.PlanResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toPlanResponse(item.Plan, item.Features))
	}
	return resp, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.PlanWithFeatures, error) {
	return s.load(ctx, true)
}

func (s *Service) load(ctx context.Context, activeOnly bool) ([]domain.PlanWithFeatures, error) {
	plans, err := s.repo.List(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	features, err := s.repo.ListFeatures(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PlanWithFeatures, 0, len(plans))
	for _, p := range plans {
		out = append(out, domain.PlanWithFeatures{Plan: p, Features: features[p.ID]})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.PlanResponse, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}

	features, err := s.repo.ListFeatures(ctx, s.db, []snowflake.ID{planID})
	if err != nil {
		return nil, err
	}
	resp := toPlanResponse(*plan, features[planID])
	return &resp, nil
}

// ReplaceFeatures deletes every feature of the plan and inserts the given list.
// A missing sort order defaults to the 1-based list position.
func (s *Service) ReplaceFeatures(ctx context.Context, planID string, features []domain.FeatureInput) ([]domain.FeatureResponse, error) {
	id, err := s.requirePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFeatureInputs(features); err != nil {
		return nil, err
	}

	rows := make([]domain.Feature, 0, len(features))
	for i, f := range features {
		rows = append(rows, s.newFeature(id, f, i+1))
	}

	err = db.RunSteps(ctx, s.db, "replace_plan_features",
		db.Step{Name: "delete_features", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteFeatures(ctx, tx, id)
		}},
		db.Step{Name: "insert_features", Run: func(tx *gorm.DB) error {
			return s.repo.InsertFeatures(ctx, tx, rows)
		}},
	)
	if err != nil {
		s.log.Error("replace plan features failed", zap.String("plan_id", id.String()), zap.Error(err))
		return nil, err
	}

	stored, err := s.repo.ListFeatures(ctx, s.db, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	return sortedFeatures(stored[id]), nil
}

// AddFeature appends one feature after the current highest sort order.
func (s *Service) AddFeature(ctx context.Context, planID string, feature domain.FeatureInput) (*domain.FeatureResponse, error) {
	id, err := s.requirePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFeatureInputs([]domain.FeatureInput{feature}); err != nil {
		return nil, err
	}

	highest, err := s.repo.MaxFeatureSortOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	row := s.newFeature(id, feature, highest+1)
	if err := s.repo.InsertFeatures(ctx, s.db, []domain.Feature{row}); err != nil {
		return nil, err
	}
	resp := domain.ToFeatureResponse(row)
	return &resp, nil
}

func (s *Service) requirePlan(ctx context.Context, raw string) (snowflake.ID, error) {
	id, err := parseID(raw)
	if err != nil {
		return 0, err
	}
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if plan == nil {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (s *Service) newFeature(planID snowflake.ID, f domain.FeatureInput, defaultOrder int) domain.Feature {
	return domain.Feature{
		ID:            s.genID.Generate(),
		PlanID:        planID,
		FeatureName:   strings.TrimSpace(f.FeatureName),
		FeatureValue:  f.FeatureValue,
		IsIncluded:    f.Included(),
		IsHighlighted: f.IsHighlighted,
		SortOrder:     f.Order(defaultOrder),
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func sortedFeatures(rows []domain.Feature) []domain.FeatureResponse {
	items := make([]domain.FeatureResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.ToFeatureResponse(row))
	}
	return domain.NormalizeFeatures(items)
}

func toPlanResponse(p domain.Plan, features []domain.Feature) domain.PlanResponse {
	return domain.PlanResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		DisplayName:   p.DisplayName,
		PriceCents:    p.PriceCents,
		PriceDisplay:  p.PriceDisplay,
		BillingPeriod: p.BillingPeriod,
		Description:   p.Description,
		IsRecommended: p.IsRecommended,
		SortOrder:     p.SortOrder,
		IsActive:      p.IsActive,
		Features:      sortedFeatures(features),
	}
}

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	obsmetrics "github.com/smallbiznis/lawdirectory/internal/observability/metrics"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Plans      plandomain.Service
	Groups     plangroupdomain.Repository
	MarketRepo marketdomain.Repository
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	plans      plandomain.Service
	groups     plangroupdomain.Repository
	marketRepo marketdomain.Repository
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("effectiveplan.service"),
		plans:      p.Plans,
		groups:     p.Groups,
		marketRepo: p.MarketRepo,
		metrics:    p.Metrics,
	}
}

func (s *Service) GetEffectivePlans(ctx context.Context, marketID string) (*domain.Result, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(marketID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidMarketID
	}

	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	market, err := s.marketRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if market == nil {
		// Unknown markets cannot hold a membership.
		s.log.Info("unknown market, serving global plans", zap.String("market_id", id.String()))
		return s.globalResult(ctx, id, plans), nil
	}

	membership, err := s.groups.FindMembership(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return s.globalResult(ctx, id, plans), nil
	}

	group := domain.GroupRef{ID: membership.GroupID, Name: "Unknown"}
	if row, err := s.groups.FindGroup(ctx, s.db, membership.GroupID); err != nil {
		return nil, err
	} else if row != nil {
		group.Name = row.Name
	}

	overrides, err := s.groupOverrides(ctx, membership.GroupID)
	if err != nil {
		return nil, err
	}

	s.log.Debug("resolving plans with group overrides",
		zap.String("market_id", id.String()),
		zap.String("group_id", group.ID.String()),
		zap.Int("override_count", len(overrides)),
	)
	s.metrics.RecordEffectivePlanResolution(ctx, domain.AssignmentGroup)

	return &domain.Result{
		MarketID:       id.String(),
		Plans:          domain.Resolve(plans, &group, overrides),
		AssignmentType: domain.AssignmentGroup,
		GroupInfo:      &domain.GroupInfo{ID: group.ID.String(), Name: group.Name},
		HasOverrides:   len(overrides) > 0,
	}, nil
}

func (s *Service) globalResult(ctx context.Context, id snowflake.ID, plans []plandomain.PlanWithFeatures) *domain.Result {
	s.metrics.RecordEffectivePlanResolution(ctx, domain.AssignmentGlobal)
	return &domain.Result{
		MarketID:       id.String(),
		Plans:          domain.Resolve(plans, nil, nil),
		AssignmentType: domain.AssignmentGlobal,
	}
}

func (s *Service) groupOverrides(ctx context.Context, groupID snowflake.ID) (map[snowflake.ID]domain.GroupOverride, error) {
	rows, err := s.groups.ListOverrides(ctx, s.db, []snowflake.ID{groupID}, true)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	features, err := s.groups.ListOverrideFeatures(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID]domain.GroupOverride, len(rows))
	for _, row := range rows {
		out[row.PlanID] = domain.GroupOverride{Override: row, Features: features[row.ID]}
	}
	return out, nil
}

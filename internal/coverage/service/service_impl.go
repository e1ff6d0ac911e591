package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	obsmetrics "github.com/smallbiznis/lawdirectory/internal/observability/metrics"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"github.com/smallbiznis/lawdirectory/pkg/db/option"
	pkgrepo "github.com/smallbiznis/lawdirectory/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Fallback   domain.FallbackSource
	Types      pkgrepo.Repository[domain.SubscriptionType]
	Markets    marketdomain.Service
	MarketRepo marketdomain.Repository
	Directory  *config.DirectoryConfigHolder `optional:"true"`
	Metrics    *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	fallback   domain.FallbackSource
	types      pkgrepo.Repository[domain.SubscriptionType]
	markets    marketdomain.Service
	marketRepo marketdomain.Repository
	directory  *config.DirectoryConfigHolder
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("coverage.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		fallback:   p.Fallback,
		types:      p.Types,
		markets:    p.Markets,
		marketRepo: p.MarketRepo,
		directory:  p.Directory,
		metrics:    p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, zip string) (*domain.Result, error) {
	resolution, err := s.markets.ResolveZip(ctx, zip)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{ZipCode: resolution.ZipCode, Market: resolution.Market}
	if err := s.cover(ctx, result, resolution.ZipCodes, zap.String("zip_code", resolution.ZipCode)); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveLocation covers the market of a city, optionally within a state, or
// of a state alone.
func (s *Service) ResolveLocation(ctx context.Context, req marketdomain.LocationRequest) (*domain.Result, error) {
	location, err := s.markets.ResolveLocation(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{Location: location, Market: location.Market}

	zips := []string{}
	if location.Market != nil {
		zips, err = s.markets.MemberZipCodes(ctx, location.Market.ID)
		if err != nil {
			return nil, err
		}
	}

	fields := []zap.Field{zap.String("city", req.City), zap.String("state", req.State)}
	if err := s.cover(ctx, result, zips, fields...); err != nil {
		return nil, err
	}
	return result, nil
}

// cover fills the lawyers and tier grouping for result.Market, falling back
// when the market is missing or nobody covers it.
func (s *Service) cover(ctx context.Context, result *domain.Result, zips []string, fields ...zap.Field) error {
	defs, err := s.tierDefinitions(ctx)
	if err != nil {
		return err
	}

	var covered []domain.CoveredLawyer
	if result.Market == nil {
		covered, err = s.fallbackLawyers(ctx)
		if err != nil {
			return err
		}
		result.FallbackReason = domain.FallbackMarketNotFound
		s.log.Info("location not mapped to a market, serving fallback lawyers",
			append(fields, zap.Int("fallback_count", len(covered)))...,
		)
	} else {
		marketID, err := snowflake.ParseString(result.Market.ID)
		if err != nil {
			return fmt.Errorf("market id %q: %w", result.Market.ID, err)
		}

		covered, err = s.coverMarket(ctx, marketID, zips)
		if err != nil {
			return err
		}
		if len(covered) == 0 {
			fallback, err := s.fallbackLawyers(ctx)
			if err != nil {
				return err
			}
			covered = domain.MergeFallback(covered, fallback)
			result.FallbackReason = domain.FallbackNoCoverage
			s.log.Info("market has no covering lawyers, serving fallback lawyers",
				append(fields,
					zap.String("market_id", result.Market.ID),
					zap.Int("fallback_count", len(covered)),
				)...,
			)
		}
	}
	if result.FallbackReason != "" {
		s.metrics.RecordCoverageFallback(ctx, result.FallbackReason)
	}

	grouping := domain.GroupByTier(covered, defs)

	result.Lawyers = toLawyerResponses(covered)
	result.GroupedByTier = make(map[domain.Tier][]domain.LawyerResponse, len(grouping.Order))
	for _, tier := range grouping.Order {
		result.GroupedByTier[tier] = toLawyerResponses(grouping.Groups[tier])
	}
	result.TierOrder = append([]domain.Tier{}, grouping.Order...)
	result.SubscriptionTypes = toTypeResponses(defs)
	return nil
}

// coverMarket unions office zip, firm zip and service area lawyers, then
// applies the per-market tier overrides.
func (s *Service) coverMarket(ctx context.Context, marketID snowflake.ID, zips []string) ([]domain.CoveredLawyer, error) {
	byOffice, err := s.repo.LawyerIDsByOfficeZip(ctx, s.db, zips)
	if err != nil {
		return nil, err
	}
	byFirm, err := s.repo.LawyerIDsByFirmZip(ctx, s.db, zips)
	if err != nil {
		return nil, err
	}
	byArea, err := s.repo.LawyerIDsByServiceArea(ctx, s.db, marketID)
	if err != nil {
		return nil, err
	}

	ids := domain.UnionLawyerIDs(byOffice, byFirm, byArea)
	if len(ids) == 0 {
		return []domain.CoveredLawyer{}, nil
	}

	lawyers, err := s.repo.FindLawyers(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	subs, err := s.repo.ListTierOverrides(ctx, s.db, marketID, ids)
	if err != nil {
		return nil, err
	}
	overrides := make(map[snowflake.ID]domain.Tier, len(subs))
	for _, sub := range subs {
		overrides[sub.LawyerID] = domain.ParseTier(sub.SubscriptionType)
	}

	out := make([]domain.CoveredLawyer, 0, len(lawyers))
	for _, lawyer := range lawyers {
		out = append(out, domain.CoveredLawyer{
			Lawyer: lawyer,
			Tier:   domain.EffectiveTier(lawyer, overrides),
		})
	}
	return out, nil
}

func (s *Service) fallbackLawyers(ctx context.Context) ([]domain.CoveredLawyer, error) {
	if !s.directory.Get().Coverage.FallbackEnabled || s.fallback == nil {
		return []domain.CoveredLawyer{}, nil
	}

	lawyers, err := s.fallback.ActiveFallback(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CoveredLawyer, 0, len(lawyers))
	seen := make(map[snowflake.ID]struct{}, len(lawyers))
	for _, lawyer := range lawyers {
		if _, ok := seen[lawyer.ID]; ok {
			continue
		}
		seen[lawyer.ID] = struct{}{}
		out = append(out, domain.CoveredLawyer{Lawyer: lawyer, Tier: lawyer.DefaultTier()})
	}
	return out, nil
}

// tierDefinitions returns the active subscription types, or the configured
// tiers when none is active.
func (s *Service) tierDefinitions(ctx context.Context) ([]domain.TierDefinition, error) {
	rows, err := s.types.Find(ctx, &domain.SubscriptionType{},
		option.WithWhere("is_active = ?", true),
		option.WithSortBy(option.SortBy{Column: "sort_order"}, option.SortBy{Column: "id"}),
	)
	if err != nil {
		return nil, err
	}

	defs := make([]domain.TierDefinition, 0, len(rows))
	for _, row := range rows {
		name := domain.Tier(strings.ToLower(strings.TrimSpace(row.Name)))
		if !name.Valid() {
			s.log.Warn("ignoring unknown subscription type", zap.String("name", row.Name))
			continue
		}
		defs = append(defs, domain.TierDefinition{
			Name:        name,
			DisplayName: row.DisplayName,
			SortOrder:   row.SortOrder,
		})
	}
	if len(defs) > 0 {
		return defs, nil
	}

	for _, tier := range s.directory.Get().Tiers {
		defs = append(defs, domain.TierDefinition{
			Name:        domain.Tier(tier.Name),
			DisplayName: tier.DisplayName,
			SortOrder:   tier.SortOrder,
		})
	}
	return defs, nil
}

func (s *Service) ListFallback(ctx context.Context) ([]domain.LawyerResponse, error) {
	covered, err := s.fallbackLawyers(ctx)
	if err != nil {
		return nil, err
	}
	return toLawyerResponses(covered), nil
}

func (s *Service) ListSubscriptionTypes(ctx context.Context) ([]domain.SubscriptionTypeResponse, error) {
	defs, err := s.tierDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return toTypeResponses(defs), nil
}

func (s *Service) ListLawyerMarkets(ctx context.Context, lawyerID string) ([]domain.LawyerMarketResponse, error) {
	id, err := parseLawyerID(lawyerID)
	if err != nil {
		return nil, err
	}

	lawyer, err := s.repo.FindLawyer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		return nil, domain.ErrLawyerNotFound
	}

	return s.lawyerMarkets(ctx, s.db, id)
}

func (s *Service) lawyerMarkets(ctx context.Context, conn *gorm.DB, lawyerID snowflake.ID) ([]domain.LawyerMarketResponse, error) {
	rows, err := s.repo.ListLawyerMarkets(ctx, conn, lawyerID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LawyerMarketResponse, 0, len(rows))
	for _, row := range rows {
		tier := domain.TierFree
		if row.SubscriptionType != nil {
			tier = domain.ParseTier(*row.SubscriptionType)
		}
		out = append(out, domain.LawyerMarketResponse{
			MarketID:         row.MarketID.String(),
			Code:             row.Code,
			Name:             row.Name,
			Slug:             row.Slug,
			SubscriptionType: tier,
		})
	}
	return out, nil
}

// ReplaceCoverage swaps a lawyer's service areas and per-market tiers for the
// given set in one transaction. A repeated market keeps its last entry.
func (s *Service) ReplaceCoverage(ctx context.Context, lawyerID string, areas []domain.AreaInput) ([]domain.LawyerMarketResponse, error) {
	id, err := parseLawyerID(lawyerID)
	if err != nil {
		return nil, err
	}

	marketIDs, tiers, err := normalizeAreas(areas)
	if err != nil {
		return nil, err
	}

	lawyer, err := s.repo.FindLawyer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		return nil, domain.ErrLawyerNotFound
	}

	if len(marketIDs) > 0 {
		existing, err := s.marketRepo.ExistingIDs(ctx, s.db, marketIDs)
		if err != nil {
			return nil, err
		}
		if len(existing) != len(marketIDs) {
			return nil, domain.ErrInvalidMarketIDs
		}
	}

	serviceAreas := make([]domain.ServiceArea, 0, len(marketIDs))
	subs := make([]domain.DmaSubscription, 0, len(marketIDs))
	for _, marketID := range marketIDs {
		serviceAreas = append(serviceAreas, domain.ServiceArea{
			ID:       s.genID.Generate(),
			LawyerID: id,
			MarketID: marketID,
		})
		subs = append(subs, domain.DmaSubscription{
			ID:               s.genID.Generate(),
			LawyerID:         id,
			MarketID:         marketID,
			SubscriptionType: string(tiers[marketID]),
		})
	}

	err = db.RunSteps(ctx, s.db, "replace_coverage",
		db.Step{Name: "delete_service_areas", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteServiceAreas(ctx, tx, id)
		}},
		db.Step{Name: "delete_dma_subscriptions", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteDmaSubscriptions(ctx, tx, id)
		}},
		db.Step{Name: "insert_service_areas", Run: func(tx *gorm.DB) error {
			return s.repo.InsertServiceAreas(ctx, tx, serviceAreas)
		}},
		db.Step{Name: "insert_dma_subscriptions", Run: func(tx *gorm.DB) error {
			return s.repo.InsertDmaSubscriptions(ctx, tx, subs)
		}},
	)
	if err != nil {
		s.log.Error("replace coverage failed", zap.String("lawyer_id", id.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("lawyer coverage replaced",
		zap.String("lawyer_id", id.String()),
		zap.Int("market_count", len(marketIDs)),
	)
	return s.lawyerMarkets(ctx, s.db, id)
}

// normalizeAreas parses the input and collapses duplicate markets onto the last entry,
// keeping first-seen order.
func normalizeAreas(areas []domain.AreaInput) ([]snowflake.ID, map[snowflake.ID]domain.Tier, error) {
	ids := make([]snowflake.ID, 0, len(areas))
	tiers := make(map[snowflake.ID]domain.Tier, len(areas))
	for _, area := range areas {
		marketID, err := snowflake.ParseString(strings.TrimSpace(area.MarketID))
		if err != nil || marketID <= 0 {
			return nil, nil, domain.ErrInvalidMarketIDs
		}

		tier := domain.TierFree
		if raw := strings.TrimSpace(area.SubscriptionType); raw != "" {
			tier = domain.Tier(strings.ToLower(raw))
			if !tier.Valid() {
				return nil, nil, domain.ErrInvalidTier
			}
		}

		if _, ok := tiers[marketID]; !ok {
			ids = append(ids, marketID)
		}
		tiers[marketID] = tier
	}
	return ids, tiers, nil
}

func parseLawyerID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidLawyerID
	}
	return id, nil
}

func toLawyerResponses(items []domain.CoveredLawyer) []domain.LawyerResponse {
	out := make([]domain.LawyerResponse, 0, len(items))
	for _, item := range items {
		var firmID *string
		if item.Lawyer.LawFirmID != nil {
			v := item.Lawyer.LawFirmID.String()
			firmID = &v
		}
		out = append(out, domain.LawyerResponse{
			ID:               item.Lawyer.ID.String(),
			FirstName:        item.Lawyer.FirstName,
			LastName:         item.Lawyer.LastName,
			Slug:             item.Lawyer.Slug,
			OfficeZipCode:    item.Lawyer.OfficeZipCode,
			LawFirmID:        firmID,
			SubscriptionType: item.Lawyer.DefaultTier(),
			EffectiveTier:    item.Tier,
		})
	}
	return out
}

func toTypeResponses(defs []domain.TierDefinition) []domain.SubscriptionTypeResponse {
	out := make([]domain.SubscriptionTypeResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, domain.SubscriptionTypeResponse{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			SortOrder:   def.SortOrder,
		})
	}
	return out
}

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/clock"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	obsmetrics "github.com/smallbiznis/lawdirectory/internal/observability/metrics"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	"github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"github.com/smallbiznis/lawdirectory/pkg/db"
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
	PlanRepo   plandomain.Repository
	MarketRepo marketdomain.Repository
	Clock      clock.Clock         `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	planRepo   plandomain.Repository
	marketRepo marketdomain.Repository
	clock      clock.Clock
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("plangroup.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		planRepo:   p.PlanRepo,
		marketRepo: p.MarketRepo,
		clock:      clk,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateGroup(ctx context.Context, req domain.CreateGroupRequest) (*domain.GroupResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var marketIDs []snowflake.ID
	if len(req.MarketIDs) > 0 {
		ids, err := s.requireMarkets(ctx, req.MarketIDs)
		if err != nil {
			return nil, err
		}
		marketIDs = ids
	}

	now := s.clock.Now()
	group := domain.Group{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	steps := []db.Step{{Name: "insert_group", Run: func(tx *gorm.DB) error {
		return s.repo.InsertGroup(ctx, tx, &group)
	}}}
	if len(marketIDs) > 0 {
		steps = append(steps, s.assignSteps(ctx, marketIDs, &group.ID)...)
	}

	err := db.RunSteps(ctx, s.db, "create_group", steps...)
	s.metrics.RecordAdminWrite(ctx, "create_group", err)
	if err != nil {
		s.log.Error("create group failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.log.Info("plan group created",
		zap.String("group_id", group.ID.String()),
		zap.Int("market_count", len(marketIDs)),
	)
	return s.groupResponse(ctx, group)
}

func (s *Service) UpdateGroup(ctx context.Context, id string, req domain.UpdateGroupRequest) (*domain.GroupResponse, error) {
	groupID, err := parseID(id, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.SortOrder != nil {
		fields["sort_order"] = *req.SortOrder
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
	}

	err = s.repo.UpdateGroup(ctx, s.db, groupID, fields)
	s.metrics.RecordAdminWrite(ctx, "update_group", err)
	if err != nil {
		return nil, err
	}

	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.groupResponse(ctx, *group)
}

func (s *Service) GetGroup(ctx context.Context, id string) (*domain.GroupResponse, error) {
	groupID, err := parseID(id, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.groupResponse(ctx, *group)
}

func (s *Service) ListGroups(ctx context.Context) ([]domain.GroupResponse, error) {
	groups, err := s.repo.ListGroups(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return s.groupResponses(ctx, groups)
}

// DeleteGroup removes override features, overrides, memberships and the group
// in one transaction. Former members resolve to global plans afterwards.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	groupID, err := parseID(id, domain.ErrInvalidGroupID)
	if err != nil {
		return err
	}
	if _, err := s.requireGroup(ctx, groupID); err != nil {
		return err
	}

	err = db.RunSteps(ctx, s.db, "delete_group",
		db.Step{Name: "delete_override_features", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteGroupOverrideFeatures(ctx, tx, groupID)
		}},
		db.Step{Name: "delete_overrides", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteGroupOverrides(ctx, tx, groupID)
		}},
		db.Step{Name: "delete_memberships", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteGroupMemberships(ctx, tx, groupID, nil)
		}},
		db.Step{Name: "delete_group", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteGroup(ctx, tx, groupID)
		}},
	)
	s.metrics.RecordAdminWrite(ctx, "delete_group", err)
	if err != nil {
		s.log.Error("delete group failed", zap.String("group_id", groupID.String()), zap.Error(err))
		return err
	}

	s.log.Info("plan group deleted", zap.String("group_id", groupID.String()))
	return nil
}

// AssignMarkets moves the markets into the group. Legacy market exceptions
// and any other membership of those markets are removed in the same transaction.
func (s *Service) AssignMarkets(ctx context.Context, groupID string, marketIDs []string) (*domain.AssignmentResult, error) {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	ids, err := parseIDs(marketIDs)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, gid); err != nil {
		return nil, err
	}
	if err := s.checkMarkets(ctx, ids); err != nil {
		return nil, err
	}

	err = db.RunSteps(ctx, s.db, "assign_markets", s.assignSteps(ctx, ids, &gid)...)
	s.metrics.RecordAdminWrite(ctx, "assign_markets", err)
	if err != nil {
		s.log.Error("assign markets failed", zap.String("group_id", gid.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("markets assigned to group",
		zap.String("group_id", gid.String()),
		zap.Int("market_count", len(ids)),
	)
	return &domain.AssignmentResult{Updated: len(ids), TargetType: domain.AssignmentGroup, GroupID: gid.String()}, nil
}

// SetMarketsGlobal detaches the markets from every group and drops their exceptions.
func (s *Service) SetMarketsGlobal(ctx context.Context, marketIDs []string) (*domain.AssignmentResult, error) {
	ids, err := parseIDs(marketIDs)
	if err != nil {
		return nil, err
	}
	if err := s.checkMarkets(ctx, ids); err != nil {
		return nil, err
	}

	err = db.RunSteps(ctx, s.db, "set_markets_global", s.assignSteps(ctx, ids, nil)...)
	s.metrics.RecordAdminWrite(ctx, "set_markets_global", err)
	if err != nil {
		s.log.Error("set markets global failed", zap.Error(err))
		return nil, err
	}
	return &domain.AssignmentResult{Updated: len(ids), TargetType: domain.AssignmentGlobal}, nil
}

func (s *Service) ApplyAssignment(ctx context.Context, req domain.AssignmentRequest) (*domain.AssignmentResult, error) {
	switch strings.ToLower(strings.TrimSpace(req.TargetType)) {
	case domain.AssignmentGlobal:
		return s.SetMarketsGlobal(ctx, req.MarketIDs)
	case domain.AssignmentGroup:
		if strings.TrimSpace(req.TargetID) == "" {
			return nil, domain.ErrInvalidGroupID
		}
		return s.AssignMarkets(ctx, req.TargetID, req.MarketIDs)
	default:
		return nil, domain.ErrInvalidTargetType
	}
}

func (s *Service) assignSteps(ctx context.Context, marketIDs []snowflake.ID, groupID *snowflake.ID) []db.Step {
	steps := []db.Step{
		{Name: "delete_market_exceptions", Run: func(tx *gorm.DB) error {
			_, err := s.repo.DeleteMarketExceptions(ctx, tx, marketIDs)
			return err
		}},
		{Name: "delete_memberships", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteMembershipsByMarket(ctx, tx, marketIDs)
		}},
	}
	if groupID == nil {
		return steps
	}

	return append(steps, db.Step{Name: "insert_memberships", Run: func(tx *gorm.DB) error {
		memberships := make([]domain.Membership, 0, len(marketIDs))
		for _, marketID := range marketIDs {
			memberships = append(memberships, domain.Membership{
				ID:       s.genID.Generate(),
				GroupID:  *groupID,
				MarketID: marketID,
			})
		}
		return s.repo.InsertMemberships(ctx, tx, memberships)
	}})
}

func (s *Service) RemoveMarkets(ctx context.Context, groupID string, marketIDs []string) (*domain.AssignmentResult, error) {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	ids, err := parseIDs(marketIDs)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, gid); err != nil {
		return nil, err
	}

	err = s.repo.DeleteGroupMemberships(ctx, s.db, gid, ids)
	s.metrics.RecordAdminWrite(ctx, "remove_markets", err)
	if err != nil {
		return nil, err
	}
	return &domain.AssignmentResult{Updated: len(ids), TargetType: domain.AssignmentGlobal}, nil
}

func (s *Service) ListGroupMarkets(ctx context.Context, groupID string) ([]domain.MarketRef, error) {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, gid); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListGroupMarkets(ctx, s.db, []snowflake.ID{gid})
	if err != nil {
		return nil, err
	}
	out := make([]domain.MarketRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, toMarketRef(row))
	}
	return out, nil
}

func (s *Service) ListAssignments(ctx context.Context) ([]domain.AssignmentResponse, error) {
	rows, err := s.repo.ListAssignments(ctx, s.db)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AssignmentResponse, 0, len(rows))
	for _, row := range rows {
		item := domain.AssignmentResponse{
			ID:             row.MarketID.String(),
			Code:           row.Code,
			Name:           row.Name,
			AssignmentType: domain.AssignmentGlobal,
		}
		if row.GroupID != nil {
			gid := row.GroupID.String()
			item.AssignmentType = domain.AssignmentGroup
			item.GroupID = &gid
			item.GroupName = row.GroupName
		}
		out = append(out, item)
	}
	return out, nil
}

// UpsertOverride stores the override for (group, plan). Price cents are
// derived from the display string. Custom features are replaced only when a
// list is supplied; turning custom features off clears them.
func (s *Service) UpsertOverride(ctx context.Context, groupID string, req domain.OverrideRequest) (*domain.OverrideResponse, error) {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	pid, err := parseID(req.PlanID, domain.ErrInvalidPlanID)
	if err != nil {
		return nil, err
	}
	if err := plandomain.ValidateFeatureInputs(req.Features); err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, gid); err != nil {
		return nil, err
	}
	plan, err := s.planRepo.FindByID(ctx, s.db, pid)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	custom := req.HasCustomFeatures != nil && *req.HasCustomFeatures
	var priceCents *int64
	if req.PriceDisplay != nil {
		priceCents = domain.PriceDisplayToCents(*req.PriceDisplay)
	}

	var override *domain.Override
	err = db.RunSteps(ctx, s.db, "upsert_override",
		db.Step{Name: "upsert_override", Run: func(tx *gorm.DB) error {
			existing, err := s.repo.FindOverride(ctx, tx, gid, pid)
			if err != nil {
				return err
			}
			created := existing == nil
			if created {
				existing = &domain.Override{ID: s.genID.Generate(), GroupID: gid, PlanID: pid}
			}
			existing.PriceCents = priceCents
			existing.PriceDisplay = req.PriceDisplay
			existing.Description = req.Description
			existing.HasCustomFeatures = custom
			existing.IsActive = true
			override = existing
			if created {
				return s.repo.InsertOverride(ctx, tx, existing)
			}
			return s.repo.SaveOverride(ctx, tx, existing)
		}},
		db.Step{Name: "replace_override_features", Run: func(tx *gorm.DB) error {
			switch {
			case custom && req.Features != nil:
				if err := s.repo.DeleteOverrideFeatures(ctx, tx, []snowflake.ID{override.ID}); err != nil {
					return err
				}
				rows := make([]domain.OverrideFeature, 0, len(req.Features))
				for i, f := range req.Features {
					rows = append(rows, domain.OverrideFeature{
						ID:            s.genID.Generate(),
						OverrideID:    override.ID,
						FeatureName:   strings.TrimSpace(f.FeatureName),
						FeatureValue:  f.FeatureValue,
						IsIncluded:    f.Included(),
						IsHighlighted: f.IsHighlighted,
						SortOrder:     f.Order(i),
					})
				}
				return s.repo.InsertOverrideFeatures(ctx, tx, rows)
			case req.HasCustomFeatures != nil && !custom:
				return s.repo.DeleteOverrideFeatures(ctx, tx, []snowflake.ID{override.ID})
			}
			return nil
		}},
	)
	s.metrics.RecordAdminWrite(ctx, "upsert_override", err)
	if err != nil {
		s.log.Error("upsert override failed",
			zap.String("group_id", gid.String()),
			zap.String("plan_id", pid.String()),
			zap.Error(err),
		)
		return nil, err
	}

	responses, err := s.overrideResponses(ctx, []domain.Override{*override})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

func (s *Service) DeleteOverride(ctx context.Context, groupID, planID string) error {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return err
	}
	pid, err := parseID(planID, domain.ErrInvalidPlanID)
	if err != nil {
		return err
	}

	override, err := s.repo.FindOverride(ctx, s.db, gid, pid)
	if err != nil {
		return err
	}
	if override == nil {
		return domain.ErrOverrideNotFound
	}

	err = db.RunSteps(ctx, s.db, "delete_override",
		db.Step{Name: "delete_override_features", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteOverrideFeatures(ctx, tx, []snowflake.ID{override.ID})
		}},
		db.Step{Name: "delete_override", Run: func(tx *gorm.DB) error {
			return s.repo.DeleteOverride(ctx, tx, override.ID)
		}},
	)
	s.metrics.RecordAdminWrite(ctx, "delete_override", err)
	return err
}

func (s *Service) ListOverrides(ctx context.Context, groupID string) ([]domain.OverrideResponse, error) {
	gid, err := parseID(groupID, domain.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, gid); err != nil {
		return nil, err
	}

	overrides, err := s.repo.ListOverrides(ctx, s.db, []snowflake.ID{gid}, false)
	if err != nil {
		return nil, err
	}
	return s.overrideResponses(ctx, overrides)
}

func (s *Service) DeleteMarketExceptions(ctx context.Context, marketIDs []string) (int64, error) {
	ids, err := parseIDs(marketIDs)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = db.RunSteps(ctx, s.db, "delete_market_exceptions",
		db.Step{Name: "delete_market_exceptions", Run: func(tx *gorm.DB) error {
			n, err := s.repo.DeleteMarketExceptions(ctx, tx, ids)
			deleted = n
			return err
		}},
	)
	s.metrics.RecordAdminWrite(ctx, "delete_market_exceptions", err)
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Service) requireGroup(ctx context.Context, id snowflake.ID) (*domain.Group, error) {
	group, err := s.repo.FindGroup(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrGroupNotFound
	}
	return group, nil
}

func (s *Service) requireMarkets(ctx context.Context, raw []string) ([]snowflake.ID, error) {
	ids, err := parseIDs(raw)
	if err != nil {
		return nil, err
	}
	if err := s.checkMarkets(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) checkMarkets(ctx context.Context, ids []snowflake.ID) error {
	found, err := s.marketRepo.ExistingIDs(ctx, s.db, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return domain.ErrInvalidMarketIDs
	}
	return nil
}

func (s *Service) groupResponse(ctx context.Context, group domain.Group) (*domain.GroupResponse, error) {
	items, err := s.groupResponses(ctx, []domain.Group{group})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *Service) groupResponses(ctx context.Context, groups []domain.Group) ([]domain.GroupResponse, error) {
	ids := make([]snowflake.ID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	markets, err := s.repo.ListGroupMarkets(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	marketsByGroup := make(map[snowflake.ID][]domain.MarketRef, len(groups))
	for _, m := range markets {
		marketsByGroup[m.GroupID] = append(marketsByGroup[m.GroupID], toMarketRef(m))
	}

	overrides, err := s.repo.ListOverrides(ctx, s.db, ids, false)
	if err != nil {
		return nil, err
	}
	responses, err := s.overrideResponses(ctx, overrides)
	if err != nil {
		return nil, err
	}
	overridesByGroup := make(map[string][]domain.OverrideResponse, len(groups))
	for _, o := range responses {
		overridesByGroup[o.GroupID] = append(overridesByGroup[o.GroupID], o)
	}

	out := make([]domain.GroupResponse, 0, len(groups))
	for _, g := range groups {
		refs := marketsByGroup[g.ID]
		if refs == nil {
			refs = []domain.MarketRef{}
		}
		groupOverrides := overridesByGroup[g.ID.String()]
		if groupOverrides == nil {
			groupOverrides = []domain.OverrideResponse{}
		}
		out = append(out, domain.GroupResponse{
			ID:          g.ID.String(),
			Name:        g.Name,
			Description: g.Description,
			SortOrder:   g.SortOrder,
			IsActive:    g.IsActive,
			Markets:     refs,
			MarketCount: len(refs),
			Overrides:   groupOverrides,
		})
	}
	return out, nil
}

func (s *Service) overrideResponses(ctx context.Context, overrides []domain.Override) ([]domain.OverrideResponse, error) {
	ids := make([]snowflake.ID, 0, len(overrides))
	for _, o := range overrides {
		ids = append(ids, o.ID)
	}
	features, err := s.repo.ListOverrideFeatures(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	plans := make(map[snowflake.ID]*domain.PlanRef)
	out := make([]domain.OverrideResponse, 0, len(overrides))
	for _, o := range overrides {
		ref, ok := plans[o.PlanID]
		if !ok {
			plan, err := s.planRepo.FindByID(ctx, s.db, o.PlanID)
			if err != nil {
				return nil, err
			}
			if plan != nil {
				ref = &domain.PlanRef{ID: plan.ID.String(), Name: plan.Name, DisplayName: plan.DisplayName}
			}
			plans[o.PlanID] = ref
		}

		items := make([]plandomain.FeatureResponse, 0, len(features[o.ID]))
		for _, f := range features[o.ID] {
			items = append(items, toFeatureResponse(f))
		}

		out = append(out, domain.OverrideResponse{
			ID:                o.ID.String(),
			GroupID:           o.GroupID.String(),
			PlanID:            o.PlanID.String(),
			Plan:              ref,
			PriceCents:        o.PriceCents,
			PriceDisplay:      o.PriceDisplay,
			Description:       o.Description,
			HasCustomFeatures: o.HasCustomFeatures,
			IsActive:          o.IsActive,
			Features:          plandomain.SortFeatures(items),
		})
	}
	return out, nil
}

func toFeatureResponse(f domain.OverrideFeature) plandomain.FeatureResponse {
	return plandomain.FeatureResponse{
		ID:            f.ID.String(),
		FeatureName:   f.FeatureName,
		FeatureValue:  f.FeatureValue,
		IsIncluded:    f.IsIncluded,
		IsHighlighted: f.IsHighlighted,
		SortOrder:     f.SortOrder,
	}
}

func toMarketRef(m domain.GroupMarket) domain.MarketRef {
	return domain.MarketRef{ID: m.MarketID.String(), Code: m.Code, Name: m.Name}
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

// parseIDs requires at least one valid market id and drops repeats.
func parseIDs(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, domain.ErrInvalidMarketIDs
	}
	seen := make(map[snowflake.ID]struct{}, len(raw))
	out := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r, domain.ErrInvalidMarketIDs)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

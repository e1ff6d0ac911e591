package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/clock"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	marketrepository "github.com/smallbiznis/lawdirectory/internal/market/repository"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	planrepository "github.com/smallbiznis/lawdirectory/internal/plan/repository"
	"github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"github.com/smallbiznis/lawdirectory/internal/plangroup/repository"
	"github.com/smallbiznis/lawdirectory/internal/testutil"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	markets []marketdomain.Market
	plan    plandomain.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.NewDB(t,
		&marketdomain.Market{}, &plandomain.Plan{}, &plandomain.Feature{},
		&domain.Group{}, &domain.Membership{}, &domain.Override{}, &domain.OverrideFeature{},
		&domain.MarketException{}, &domain.MarketExceptionFeature{},
	)
	node := testutil.NewNode(t)
	f := &fixture{db: conn, node: node}

	for i, name := range []string{"ATLANTA", "BOSTON", "CHICAGO"} {
		m := marketdomain.Market{ID: node.Generate(), Code: 500 + i, Name: name, Slug: name}
		testutil.MustCreate(t, conn, &m)
		f.markets = append(f.markets, m)
	}
	f.plan = plandomain.Plan{ID: node.Generate(), Name: "premium", DisplayName: "Premium", PriceCents: 99000, PriceDisplay: "$990", BillingPeriod: "month", IsActive: true}
	testutil.MustCreate(t, conn, &f.plan)

	f.svc = New(Params{
		DB:         conn,
		Log:        zaptest.NewLogger(t),
		GenID:      node,
		Repo:       repository.Provide(),
		PlanRepo:   planrepository.Provide(),
		MarketRepo: marketrepository.Provide(),
	})
	return f
}

func (f *fixture) marketID(i int) string { return f.markets[i].ID.String() }

func (f *fixture) group(t *testing.T, name string) *domain.GroupResponse {
	t.Helper()
	g, err := f.svc.CreateGroup(context.Background(), domain.CreateGroupRequest{Name: name})
	require.NoError(t, err)
	return g
}

func (f *fixture) addException(t *testing.T, marketIdx int) snowflake.ID {
	t.Helper()
	exception := domain.MarketException{ID: f.node.Generate(), PlanID: f.plan.ID, MarketID: f.markets[marketIdx].ID, IsActive: true}
	testutil.MustCreate(t, f.db,
		&exception,
		&domain.MarketExceptionFeature{ID: f.node.Generate(), OverrideID: exception.ID, FeatureName: "Legacy"},
	)
	return exception.ID
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestAssignMarketsIsExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")
	h := f.group(t, "Northeast")
	f.addException(t, 0)

	res, err := f.svc.AssignMarkets(ctx, g.ID, []string{f.marketID(0), f.marketID(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Zero(t, f.count(t, &domain.MarketException{}, "dma_id = ?", f.markets[0].ID))
	assert.Zero(t, f.count(t, &domain.MarketExceptionFeature{}, "1 = 1"))

	_, err = f.svc.AssignMarkets(ctx, h.ID, []string{f.marketID(0)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.count(t, &domain.Membership{}, "dma_id = ?", f.markets[0].ID))
	gMarkets, err := f.svc.ListGroupMarkets(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, gMarkets, 1)
	assert.Equal(t, "BOSTON", gMarkets[0].Name)

	hMarkets, err := f.svc.ListGroupMarkets(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, hMarkets, 1)
	assert.Equal(t, "ATLANTA", hMarkets[0].Name)
}

func TestAssignMarketsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	ids := []string{f.marketID(0), f.marketID(0), f.marketID(2)}
	first, err := f.svc.AssignMarkets(ctx, g.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	_, err = f.svc.AssignMarkets(ctx, g.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.count(t, &domain.Membership{}, "group_id = ?", mustID(t, g.ID)))
}

func TestAssignMarketsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	_, err := f.svc.AssignMarkets(ctx, g.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidMarketIDs)

	_, err = f.svc.AssignMarkets(ctx, "", []string{f.marketID(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidGroupID)

	_, err = f.svc.AssignMarkets(ctx, "77", []string{f.marketID(0)})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)

	_, err = f.svc.AssignMarkets(ctx, g.ID, []string{"88"})
	assert.ErrorIs(t, err, domain.ErrInvalidMarketIDs)

	_, err = f.svc.ApplyAssignment(ctx, domain.AssignmentRequest{MarketIDs: []string{f.marketID(0)}, TargetType: "region"})
	assert.ErrorIs(t, err, domain.ErrInvalidTargetType)

	_, err = f.svc.ApplyAssignment(ctx, domain.AssignmentRequest{MarketIDs: []string{f.marketID(0)}, TargetType: "group"})
	assert.ErrorIs(t, err, domain.ErrInvalidGroupID)
}

func TestAssignMarketsRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")
	f.addException(t, 0)

	testutil.MustExec(t, f.db, "DROP TABLE subscription_plan_group_memberships")

	_, err := f.svc.AssignMarkets(ctx, g.ID, []string{f.marketID(0)})
	var writeErr *db.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "assign_markets", writeErr.Operation)
	assert.Equal(t, "delete_memberships", writeErr.Step)
	assert.Equal(t, []string{"delete_market_exceptions"}, writeErr.CompletedSteps)
	assert.True(t, writeErr.RolledBack)

	assert.Equal(t, int64(1), f.count(t, &domain.MarketException{}, "dma_id = ?", f.markets[0].ID))
}

func TestApplyAssignmentGlobalAndListAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	_, err := f.svc.ApplyAssignment(ctx, domain.AssignmentRequest{
		MarketIDs:  []string{f.marketID(0), f.marketID(1)},
		TargetType: "group",
		TargetID:   g.ID,
	})
	require.NoError(t, err)

	res, err := f.svc.ApplyAssignment(ctx, domain.AssignmentRequest{MarketIDs: []string{f.marketID(1)}, TargetType: "global"})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentGlobal, res.TargetType)

	items, err := f.svc.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, domain.AssignmentGroup, items[0].AssignmentType)
	require.NotNil(t, items[0].GroupName)
	assert.Equal(t, "Southeast", *items[0].GroupName)
	assert.Equal(t, domain.AssignmentGlobal, items[1].AssignmentType)
	assert.Nil(t, items[1].GroupID)
	assert.Equal(t, domain.AssignmentGlobal, items[2].AssignmentType)
}

func TestCreateGroupAssignsMarkets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")
	_, err := f.svc.AssignMarkets(ctx, g.ID, []string{f.marketID(0)})
	require.NoError(t, err)

	h, err := f.svc.CreateGroup(ctx, domain.CreateGroupRequest{Name: "Metro", MarketIDs: []string{f.marketID(0), f.marketID(2)}})
	require.NoError(t, err)
	assert.Equal(t, 2, h.MarketCount)
	assert.True(t, h.IsActive)

	reloaded, err := f.svc.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.MarketCount)

	_, err = f.svc.CreateGroup(ctx, domain.CreateGroupRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdateGroupPatchesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	inactive := false
	order := 4
	updated, err := f.svc.UpdateGroup(ctx, g.ID, domain.UpdateGroupRequest{IsActive: &inactive, SortOrder: &order})
	require.NoError(t, err)
	assert.Equal(t, "Southeast", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 4, updated.SortOrder)

	_, err = f.svc.UpdateGroup(ctx, "123", domain.UpdateGroupRequest{})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestUpdateGroupStampsClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	f.svc = New(Params{
		DB:         f.db,
		Log:        zaptest.NewLogger(t),
		GenID:      f.node,
		Repo:       repository.Provide(),
		PlanRepo:   planrepository.Provide(),
		MarketRepo: marketrepository.Provide(),
		Clock:      fake,
	})

	g := f.group(t, "Southeast")
	fake.Advance(2 * time.Hour)
	name := "South East"
	_, err := f.svc.UpdateGroup(ctx, g.ID, domain.UpdateGroupRequest{Name: &name})
	require.NoError(t, err)

	var row domain.Group
	require.NoError(t, f.db.Where("id = ?", g.ID).First(&row).Error)
	assert.True(t, row.CreatedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)), "created_at %s", row.CreatedAt)
	assert.True(t, row.UpdatedAt.Equal(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)), "updated_at %s", row.UpdatedAt)
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestUpsertOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	created, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		PriceDisplay:      strPtr("$1,490"),
		Description:       strPtr("Regional pricing"),
		HasCustomFeatures: boolPtr(true),
		Features: []plandomain.FeatureInput{
			{FeatureName: "Leads"},
			{FeatureName: "Badge"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created.PriceCents)
	assert.Equal(t, int64(149000), *created.PriceCents)
	require.NotNil(t, created.Plan)
	assert.Equal(t, "premium", created.Plan.Name)
	require.Len(t, created.Features, 2)
	assert.Equal(t, "Leads", created.Features[0].FeatureName)
	assert.Equal(t, 0, created.Features[0].SortOrder)
	assert.Equal(t, 1, created.Features[1].SortOrder)

	replaced, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		PriceDisplay:      strPtr("call us"),
		HasCustomFeatures: boolPtr(true),
		Features:          []plandomain.FeatureInput{{FeatureName: "Concierge"}},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Nil(t, replaced.PriceCents)
	assert.Nil(t, replaced.Description)
	require.Len(t, replaced.Features, 1)
	assert.Equal(t, "Concierge", replaced.Features[0].FeatureName)

	kept, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		HasCustomFeatures: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Len(t, kept.Features, 1, "features untouched when no list is supplied")

	cleared, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		HasCustomFeatures: boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, cleared.HasCustomFeatures)
	assert.Empty(t, cleared.Features)

	assert.Equal(t, int64(1), f.count(t, &domain.Override{}, "group_id = ?", mustID(t, g.ID)))
}

func TestUpsertOverrideValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	_, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidPlanID)

	_, err = f.svc.UpsertOverride(ctx, "x", domain.OverrideRequest{PlanID: f.plan.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidGroupID)

	_, err = f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{PlanID: "55"})
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = f.svc.UpsertOverride(ctx, "55", domain.OverrideRequest{PlanID: f.plan.ID.String()})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestDeleteOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")

	_, err := f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		HasCustomFeatures: boolPtr(true),
		Features:          []plandomain.FeatureInput{{FeatureName: "Leads"}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOverride(ctx, g.ID, f.plan.ID.String()))
	assert.Zero(t, f.count(t, &domain.OverrideFeature{}, "1 = 1"))

	overrides, err := f.svc.ListOverrides(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	assert.ErrorIs(t, f.svc.DeleteOverride(ctx, g.ID, f.plan.ID.String()), domain.ErrOverrideNotFound)
}

func TestDeleteGroupRemovesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")
	other := f.group(t, "Midwest")

	_, err := f.svc.AssignMarkets(ctx, g.ID, []string{f.marketID(0), f.marketID(1)})
	require.NoError(t, err)
	_, err = f.svc.AssignMarkets(ctx, other.ID, []string{f.marketID(2)})
	require.NoError(t, err)
	_, err = f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{
		PlanID:            f.plan.ID.String(),
		HasCustomFeatures: boolPtr(true),
		Features:          []plandomain.FeatureInput{{FeatureName: "Leads"}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteGroup(ctx, g.ID))

	gid := mustID(t, g.ID)
	assert.Zero(t, f.count(t, &domain.Group{}, "id = ?", gid))
	assert.Zero(t, f.count(t, &domain.Membership{}, "group_id = ?", gid))
	assert.Zero(t, f.count(t, &domain.Override{}, "group_id = ?", gid))
	assert.Zero(t, f.count(t, &domain.OverrideFeature{}, "1 = 1"))
	assert.Equal(t, int64(1), f.count(t, &domain.Membership{}, "group_id = ?", mustID(t, other.ID)))

	_, err = f.svc.GetGroup(ctx, g.ID)
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	assert.ErrorIs(t, f.svc.DeleteGroup(ctx, g.ID), domain.ErrGroupNotFound)
}

func TestDeleteMarketExceptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addException(t, 0)
	f.addException(t, 1)

	n, err := f.svc.DeleteMarketExceptions(ctx, []string{f.marketID(0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), f.count(t, &domain.MarketException{}, "1 = 1"))
	assert.Equal(t, int64(1), f.count(t, &domain.MarketExceptionFeature{}, "1 = 1"))

	_, err = f.svc.DeleteMarketExceptions(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidMarketIDs)
}

func TestListGroupsIncludesMarketsAndOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "Southeast")
	_ = f.group(t, "Empty")

	_, err := f.svc.AssignMarkets(ctx, g.ID, []string{f.marketID(1)})
	require.NoError(t, err)
	_, err = f.svc.UpsertOverride(ctx, g.ID, domain.OverrideRequest{PlanID: f.plan.ID.String(), PriceDisplay: strPtr("$10")})
	require.NoError(t, err)

	groups, err := f.svc.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byName := map[string]domain.GroupResponse{}
	for _, item := range groups {
		byName[item.Name] = item
	}
	assert.Equal(t, 1, byName["Southeast"].MarketCount)
	require.Len(t, byName["Southeast"].Overrides, 1)
	assert.Equal(t, int64(1000), *byName["Southeast"].Overrides[0].PriceCents)
	assert.NotNil(t, byName["Empty"].Markets)
	assert.Empty(t, byName["Empty"].Overrides)
}

func mustID(t *testing.T, raw string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(raw)
	require.NoError(t, err)
	return id
}

package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	marketrepository "github.com/smallbiznis/lawdirectory/internal/market/repository"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	planrepository "github.com/smallbiznis/lawdirectory/internal/plan/repository"
	planservice "github.com/smallbiznis/lawdirectory/internal/plan/service"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	plangrouprepository "github.com/smallbiznis/lawdirectory/internal/plangroup/repository"
	plangroupservice "github.com/smallbiznis/lawdirectory/internal/plangroup/service"
	"github.com/smallbiznis/lawdirectory/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// countingGroups records whether override rows were read.
type countingGroups struct {
	plangroupdomain.Repository
	overrideReads int
}

func (c *countingGroups) ListOverrides(ctx context.Context, db *gorm.DB, groupIDs []snowflake.ID, activeOnly bool) ([]plangroupdomain.Override, error) {
	c.overrideReads++
	return c.Repository.ListOverrides(ctx, db, groupIDs, activeOnly)
}

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	groups  plangroupdomain.Service
	counter *countingGroups
	market  marketdomain.Market
	basic   plandomain.Plan
	premium plandomain.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.NewDB(t,
		&marketdomain.Market{}, &plandomain.Plan{}, &plandomain.Feature{},
		&plangroupdomain.Group{}, &plangroupdomain.Membership{},
		&plangroupdomain.Override{}, &plangroupdomain.OverrideFeature{},
		&plangroupdomain.MarketException{}, &plangroupdomain.MarketExceptionFeature{},
	)
	node := testutil.NewNode(t)
	log := zaptest.NewLogger(t)

	f := &fixture{db: conn}
	f.market = marketdomain.Market{ID: node.Generate(), Code: 524, Name: "ATLANTA", Slug: "atlanta"}
	f.basic = plandomain.Plan{ID: node.Generate(), Name: "basic", DisplayName: "Basic", PriceDisplay: "$0", BillingPeriod: "month", SortOrder: 1, IsActive: true}
	f.premium = plandomain.Plan{ID: node.Generate(), Name: "premium", DisplayName: "Premium", PriceCents: 99000, PriceDisplay: "$990", BillingPeriod: "month", SortOrder: 2, IsActive: true}
	retired := plandomain.Plan{ID: node.Generate(), Name: "legacy", DisplayName: "Legacy", PriceDisplay: "$5", BillingPeriod: "month", SortOrder: 0, IsActive: false}
	testutil.MustCreate(t, conn, &f.market, &f.premium, &f.basic, &retired)
	testutil.MustCreate(t, conn,
		&plandomain.Feature{ID: node.Generate(), PlanID: f.premium.ID, FeatureName: "Lead routing", IsIncluded: true, SortOrder: 1},
		&plandomain.Feature{ID: node.Generate(), PlanID: f.premium.ID, FeatureName: "Profile", IsIncluded: true, SortOrder: 0},
	)

	groupRepo := plangrouprepository.Provide()
	planRepo := planrepository.Provide()
	marketRepo := marketrepository.Provide()
	f.counter = &countingGroups{Repository: groupRepo}

	f.groups = plangroupservice.New(plangroupservice.Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Repo:       groupRepo,
		PlanRepo:   planRepo,
		MarketRepo: marketRepo,
	})
	f.svc = New(Params{
		DB:         conn,
		Log:        log,
		Plans:      planservice.New(planservice.Params{DB: conn, Log: log, GenID: node, Repo: planRepo}),
		Groups:     f.counter,
		MarketRepo: marketRepo,
	})
	return f
}

func (f *fixture) assign(t *testing.T, name string) *plangroupdomain.GroupResponse {
	t.Helper()
	g, err := f.groups.CreateGroup(context.Background(), plangroupdomain.CreateGroupRequest{
		Name:      name,
		MarketIDs: []string{f.market.ID.String()},
	})
	require.NoError(t, err)
	return g
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestGetEffectivePlansGlobal(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.GetEffectivePlans(context.Background(), f.market.ID.String())
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentGlobal, res.AssignmentType)
	assert.Nil(t, res.GroupInfo)
	assert.False(t, res.HasOverrides)
	assert.Equal(t, 0, f.counter.overrideReads, "override rows should not be read for an unassigned market")

	require.Len(t, res.Plans, 2)
	assert.Equal(t, "basic", res.Plans[0].Name)
	assert.Equal(t, "premium", res.Plans[1].Name)
	for _, p := range res.Plans {
		assert.Equal(t, domain.OverrideTypeGlobal, p.OverrideType)
		assert.False(t, p.HasMarketOverride)
	}
	require.Len(t, res.Plans[1].Features, 2)
	assert.Equal(t, "Profile", res.Plans[1].Features[0].FeatureName)
}

func TestGetEffectivePlansGroupOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.assign(t, "Southeast")

	_, err := f.groups.UpsertOverride(ctx, g.ID, plangroupdomain.OverrideRequest{
		PlanID:            f.premium.ID.String(),
		PriceDisplay:      strPtr("$1,490"),
		HasCustomFeatures: boolPtr(true),
		Features: []plandomain.FeatureInput{
			{FeatureName: "Concierge"},
			{FeatureName: "Badge"},
		},
	})
	require.NoError(t, err)

	res, err := f.svc.GetEffectivePlans(ctx, f.market.ID.String())
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentGroup, res.AssignmentType)
	require.NotNil(t, res.GroupInfo)
	assert.Equal(t, g.ID, res.GroupInfo.ID)
	assert.Equal(t, "Southeast", res.GroupInfo.Name)
	assert.True(t, res.HasOverrides)

	require.Len(t, res.Plans, 2)
	basic, premium := res.Plans[0], res.Plans[1]
	assert.Equal(t, domain.OverrideTypeGlobal, basic.OverrideType)

	assert.Equal(t, int64(149000), premium.PriceCents)
	assert.Equal(t, "$1,490", premium.PriceDisplay)
	assert.True(t, premium.PriceOverridden)
	assert.True(t, premium.FeaturesOverridden)
	assert.True(t, premium.HasMarketOverride)
	require.NotNil(t, premium.GroupName)
	assert.Equal(t, "Southeast", *premium.GroupName)
	require.Len(t, premium.Features, 2)
	assert.Equal(t, "Concierge", premium.Features[0].FeatureName)
	assert.Equal(t, "Badge", premium.Features[1].FeatureName)
}

func TestGetEffectivePlansGroupWithoutOverrides(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "Empty")

	res, err := f.svc.GetEffectivePlans(context.Background(), f.market.ID.String())
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentGroup, res.AssignmentType)
	assert.False(t, res.HasOverrides)
	assert.Equal(t, int64(99000), res.Plans[1].PriceCents)
	assert.Equal(t, domain.OverrideTypeGlobal, res.Plans[1].OverrideType)
}

func TestGetEffectivePlansRevertsAfterGroupDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.assign(t, "Temporary")
	_, err := f.groups.UpsertOverride(ctx, g.ID, plangroupdomain.OverrideRequest{
		PlanID:       f.premium.ID.String(),
		PriceDisplay: strPtr("$10"),
	})
	require.NoError(t, err)

	require.NoError(t, f.groups.DeleteGroup(ctx, g.ID))

	res, err := f.svc.GetEffectivePlans(ctx, f.market.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentGlobal, res.AssignmentType)
	assert.Equal(t, int64(99000), res.Plans[1].PriceCents)
}

func TestGetEffectivePlansValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetEffectivePlans(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidMarketID)

	_, err = f.svc.GetEffectivePlans(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidMarketID)
}

func TestGetEffectivePlansUnknownMarketIsGlobal(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.GetEffectivePlans(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", res.MarketID)
	assert.Equal(t, domain.AssignmentGlobal, res.AssignmentType)
	assert.Nil(t, res.GroupInfo)
	assert.False(t, res.HasOverrides)
	require.Len(t, res.Plans, 2)
	assert.Equal(t, "basic", res.Plans[0].Name)
	assert.Equal(t, int64(99000), res.Plans[1].PriceCents)
	assert.Zero(t, f.counter.overrideReads)
}

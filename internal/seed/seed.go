package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	"github.com/smallbiznis/lawdirectory/internal/ratelimit"
	pkgrepo "github.com/smallbiznis/lawdirectory/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedJob      = "demo-seed"
	seedLeaseTTL = 2 * time.Minute
)

type Params struct {
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	// Locker is optional. When set, only the replica holding the lock seeds.
	Locker      *ratelimit.Locker
	AdminUserID string
}

type stateRow struct {
	name, abbr string
	cities     []cityRow
}

type cityRow struct {
	name string
	zips []zipRow
}

type zipRow struct {
	zip        string
	marketCode int
}

var demoMarkets = []struct {
	code int
	name string
}{
	{501, "NEW YORK"},
	{524, "ATLANTA"},
	{534, "ORLANDO-DAYTONA BEACH-MELBOURNE"},
}

var demoStates = []stateRow{
	{name: "Georgia", abbr: "GA", cities: []cityRow{
		{name: "Atlanta", zips: []zipRow{{"30303", 524}, {"30308", 524}, {"30309", 534}}},
		{name: "Decatur", zips: []zipRow{{"30030", 524}}},
	}},
	{name: "Florida", abbr: "FL", cities: []cityRow{
		{name: "Orlando", zips: []zipRow{{"32801", 534}, {"32803", 534}}},
		{name: "Melbourne", zips: []zipRow{{"32901", 534}}},
	}},
	{name: "New York", abbr: "NY", cities: []cityRow{
		{name: "New York", zips: []zipRow{{"10001", 501}, {"10016", 501}}},
	}},
}

// Bootstrap seeds demo data once per store. With a Locker, replicas that lose
// the lock skip seeding.
func Bootstrap(ctx context.Context, p Params) error {
	if p.Locker == nil {
		return Demo(ctx, p)
	}

	lease, err := p.Locker.Acquire(ctx, seedJob, seedLeaseTTL)
	if err != nil {
		return err
	}
	if lease == nil {
		p.Log.Info("seed skipped, another instance is seeding", zap.String("job", seedJob))
		return nil
	}
	defer func() {
		if err := p.Locker.Release(context.Background(), lease); err != nil {
			p.Log.Warn("release seed lease", zap.String("job", lease.Job), zap.Error(err))
		}
	}()
	return Demo(ctx, p)
}

// Demo loads a small directory: three markets, their zips, tier definitions,
// the plan catalog and a handful of lawyers. It does nothing when markets
// already exist, apart from ensuring the admin profile.
func Demo(ctx context.Context, p Params) error {
	if p.DB == nil {
		return errors.New("seed database handle is required")
	}
	if p.GenID == nil {
		return errors.New("seed id generator is required")
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAdminProfile(ctx, tx, p.GenID, p.AdminUserID); err != nil {
			return err
		}

		existing, err := pkgrepo.ProvideStore[marketdomain.Market](tx).Count(ctx, nil)
		if err != nil {
			return err
		}
		if existing > 0 {
			log.Info("seed skipped, markets already present", zap.Int64("markets", existing))
			return nil
		}

		markets, err := seedGeography(ctx, tx, p.GenID)
		if err != nil {
			return err
		}
		if err := seedTiers(ctx, tx, p.GenID); err != nil {
			return err
		}
		if err := seedPlans(ctx, tx, p.GenID); err != nil {
			return err
		}
		if err := seedLawyers(ctx, tx, p.GenID, markets); err != nil {
			return err
		}
		log.Info("demo data seeded", zap.Int("markets", len(markets)))
		return nil
	})
}

func ensureAdminProfile(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	profiles := pkgrepo.ProvideStore[authorization.Profile](tx)
	existing, err := profiles.FindOne(ctx, &authorization.Profile{UserID: userID})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return profiles.Create(ctx, &authorization.Profile{
		ID:     node.Generate(),
		UserID: userID,
		Role:   authorization.RoleSuperAdmin,
	})
}

func seedGeography(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (map[int]snowflake.ID, error) {
	now := time.Now().UTC()
	marketIDs := make(map[int]snowflake.ID, len(demoMarkets))
	markets := make([]*marketdomain.Market, 0, len(demoMarkets))
	for _, m := range demoMarkets {
		row := &marketdomain.Market{
			ID:        node.Generate(),
			Code:      m.code,
			Name:      m.name,
			Slug:      slug.Make(m.name),
			CreatedAt: now,
			UpdatedAt: now,
		}
		marketIDs[m.code] = row.ID
		markets = append(markets, row)
	}

	var (
		states   []*marketdomain.State
		cities   []*marketdomain.City
		zips     []*marketdomain.ZipCode
		mappings []*marketdomain.ZipCodeMarket
	)
	for _, s := range demoStates {
		state := &marketdomain.State{ID: node.Generate(), Name: s.name, Abbreviation: s.abbr}
		states = append(states, state)
		for _, c := range s.cities {
			city := &marketdomain.City{ID: node.Generate(), Name: c.name, StateID: state.ID}
			cities = append(cities, city)
			for _, z := range c.zips {
				zip := &marketdomain.ZipCode{ID: node.Generate(), ZipCode: z.zip, CityID: city.ID}
				zips = append(zips, zip)
				mappings = append(mappings, &marketdomain.ZipCodeMarket{
					ID:        node.Generate(),
					ZipCodeID: zip.ID,
					MarketID:  marketIDs[z.marketCode],
				})
			}
		}
	}

	if err := pkgrepo.ProvideStore[marketdomain.Market](tx).BatchCreate(ctx, markets); err != nil {
		return nil, err
	}
	if err := pkgrepo.ProvideStore[marketdomain.State](tx).BatchCreate(ctx, states); err != nil {
		return nil, err
	}
	if err := pkgrepo.ProvideStore[marketdomain.City](tx).BatchCreate(ctx, cities); err != nil {
		return nil, err
	}
	if err := pkgrepo.ProvideStore[marketdomain.ZipCode](tx).BatchCreate(ctx, zips); err != nil {
		return nil, err
	}
	if err := pkgrepo.ProvideStore[marketdomain.ZipCodeMarket](tx).BatchCreate(ctx, mappings); err != nil {
		return nil, err
	}
	return marketIDs, nil
}

func seedTiers(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	tiers := []*coveragedomain.SubscriptionType{
		{Name: string(coveragedomain.TierPremium), DisplayName: "Premium", SortOrder: 1, IsActive: true},
		{Name: string(coveragedomain.TierEnhanced), DisplayName: "Enhanced", SortOrder: 2, IsActive: true},
		{Name: string(coveragedomain.TierBasic), DisplayName: "Basic", SortOrder: 3, IsActive: true},
		{Name: string(coveragedomain.TierFree), DisplayName: "Free", SortOrder: 4, IsActive: true},
	}
	for _, t := range tiers {
		t.ID = node.Generate()
	}
	return pkgrepo.ProvideStore[coveragedomain.SubscriptionType](tx).BatchCreate(ctx, tiers)
}

func seedPlans(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()
	catalog := []struct {
		plan     plandomain.Plan
		features []string
	}{
		{
			plan:     plandomain.Plan{Name: "basic", DisplayName: "Basic", PriceCents: 0, PriceDisplay: "$0", SortOrder: 1},
			features: []string{"Directory listing", "Contact form"},
		},
		{
			plan:     plandomain.Plan{Name: "enhanced", DisplayName: "Enhanced", PriceCents: 49000, PriceDisplay: "$490", SortOrder: 2, IsRecommended: true},
			features: []string{"Directory listing", "Contact form", "Profile photo", "Priority placement"},
		},
		{
			plan:     plandomain.Plan{Name: "premium", DisplayName: "Premium", PriceCents: 99000, PriceDisplay: "$990", SortOrder: 3},
			features: []string{"Directory listing", "Contact form", "Profile photo", "Priority placement", "Top of market"},
		},
	}

	plans := make([]*plandomain.Plan, 0, len(catalog))
	var features []*plandomain.Feature
	for _, item := range catalog {
		plan := item.plan
		plan.ID = node.Generate()
		plan.BillingPeriod = plandomain.DefaultBillingPeriod
		plan.IsActive = true
		plan.CreatedAt = now
		plan.UpdatedAt = now
		plans = append(plans, &plan)
		for i, name := range item.features {
			features = append(features, &plandomain.Feature{
				ID:          node.Generate(),
				PlanID:      plan.ID,
				FeatureName: name,
				IsIncluded:  true,
				SortOrder:   i + 1,
			})
		}
	}

	if err := pkgrepo.ProvideStore[plandomain.Plan](tx).BatchCreate(ctx, plans); err != nil {
		return err
	}
	return pkgrepo.ProvideStore[plandomain.Feature](tx).BatchCreate(ctx, features)
}

func seedLawyers(ctx context.Context, tx *gorm.DB, node *snowflake.Node, markets map[int]snowflake.ID) error {
	firmZip := "30303"
	firm := &coveragedomain.LawFirm{ID: node.Generate(), Name: "Peachtree Legal Group", ZipCode: &firmZip}
	if err := pkgrepo.ProvideStore[coveragedomain.LawFirm](tx).Create(ctx, firm); err != nil {
		return err
	}

	people := []struct {
		first, last string
		zip         string
		firm        bool
		tier        coveragedomain.Tier
	}{
		{"Alicia", "Moreno", "30309", false, coveragedomain.TierFree},
		{"Brandon", "Okafor", "", true, coveragedomain.TierBasic},
		{"Chen", "Li", "32801", false, coveragedomain.TierEnhanced},
		{"Dana", "Whitfield", "10001", false, coveragedomain.TierFree},
		{"Evan", "Brooks", "", false, coveragedomain.TierBasic},
	}

	lawyers := make([]*coveragedomain.Lawyer, 0, len(people))
	for _, p := range people {
		tier := string(p.tier)
		row := &coveragedomain.Lawyer{
			ID:               node.Generate(),
			FirstName:        p.first,
			LastName:         p.last,
			Slug:             slug.Make(p.first + " " + p.last),
			SubscriptionType: &tier,
		}
		if p.zip != "" {
			zip := p.zip
			row.OfficeZipCode = &zip
		}
		if p.firm {
			row.LawFirmID = &firm.ID
		}
		lawyers = append(lawyers, row)
	}
	if err := pkgrepo.ProvideStore[coveragedomain.Lawyer](tx).BatchCreate(ctx, lawyers); err != nil {
		return err
	}

	// Evan only serves markets through service areas. Chen is upgraded in
	// Atlanta and Alicia in Orlando.
	alicia, chen, evan := lawyers[0], lawyers[2], lawyers[4]
	areas := []*coveragedomain.ServiceArea{
		{ID: node.Generate(), LawyerID: evan.ID, MarketID: markets[524]},
		{ID: node.Generate(), LawyerID: evan.ID, MarketID: markets[534]},
		{ID: node.Generate(), LawyerID: chen.ID, MarketID: markets[524]},
	}
	subs := []*coveragedomain.DmaSubscription{
		{ID: node.Generate(), LawyerID: chen.ID, MarketID: markets[524], SubscriptionType: string(coveragedomain.TierPremium)},
		{ID: node.Generate(), LawyerID: alicia.ID, MarketID: markets[534], SubscriptionType: string(coveragedomain.TierPremium)},
	}
	fallback := []*coveragedomain.FallbackLawyer{
		{ID: node.Generate(), LawyerID: alicia.ID, DisplayOrder: 1, IsActive: true},
		{ID: node.Generate(), LawyerID: lawyers[3].ID, DisplayOrder: 2, IsActive: true},
	}

	if err := pkgrepo.ProvideStore[coveragedomain.ServiceArea](tx).BatchCreate(ctx, areas); err != nil {
		return err
	}
	if err := pkgrepo.ProvideStore[coveragedomain.DmaSubscription](tx).BatchCreate(ctx, subs); err != nil {
		return err
	}
	return pkgrepo.ProvideStore[coveragedomain.FallbackLawyer](tx).BatchCreate(ctx, fallback)
}

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/coverage"
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan"
	"github.com/smallbiznis/lawdirectory/internal/market"
	"github.com/smallbiznis/lawdirectory/internal/migration"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	"github.com/smallbiznis/lawdirectory/internal/plan"
	"github.com/smallbiznis/lawdirectory/internal/plangroup"
	"github.com/smallbiznis/lawdirectory/internal/seed"
	"github.com/smallbiznis/lawdirectory/internal/server"
	"github.com/smallbiznis/lawdirectory/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	jwtSecret   = "e2e-secret"
	adminUserID = "admin-1"
)

type env struct {
	t      *testing.T
	engine *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.NewDB(t)
	node := testutil.NewNode(t)
	log := zaptest.NewLogger(t)
	require.NoError(t, migration.Apply(conn, "sqlite"))
	require.NoError(t, seed.Demo(context.Background(), seed.Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		AdminUserID: adminUserID,
	}))

	cfg := config.Config{AuthJWTSecret: jwtSecret}
	var srv *server.Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg, conn, node),
		fx.Provide(func() *zap.Logger { return log }),
		fx.Provide(func() *gin.Engine {
			return server.NewEngine(cfg, observability.Config{Environment: "test"}, nil)
		}),
		authorization.Module,
		market.Module,
		coverage.Module,
		plan.Module,
		plangroup.Module,
		effectiveplan.Module,
		fx.Provide(server.NewServer),
		fx.Populate(&srv),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	return &env{t: t, engine: srv.Engine()}
}

func (e *env) token(subject string) string {
	e.t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(e.t, err)
	return signed
}

// call issues a request and decodes the data envelope into out when out is non-nil.
func (e *env) call(method, path, subject string, body any, out any) int {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(subject))
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusBadRequest {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
		require.NoError(e.t, json.Unmarshal(envelope.Data, out))
	}
	return rec.Code
}

type marketView struct {
	ID   string `json:"id"`
	Code int    `json:"code"`
	Name string `json:"name"`
}

type planView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PriceCents      int64   `json:"price_cents"`
	PriceDisplay    string  `json:"price_display"`
	OverrideType    string  `json:"override_type"`
	PriceOverridden bool    `json:"price_overridden"`
	GroupName       *string `json:"group_name"`
}

type effectiveView struct {
	AssignmentType string     `json:"assignment_type"`
	HasOverrides   bool       `json:"has_overrides"`
	Plans          []planView `json:"plans"`
}

func (e *env) marketByCode(code int) marketView {
	e.t.Helper()
	var markets []marketView
	require.Equal(e.t, http.StatusOK, e.call(http.MethodGet, "/api/markets", "", nil, &markets))
	for _, m := range markets {
		if m.Code == code {
			return m
		}
	}
	e.t.Fatalf("market %d not seeded", code)
	return marketView{}
}

func (e *env) effectivePlans(marketID string) effectiveView {
	e.t.Helper()
	var out effectiveView
	require.Equal(e.t, http.StatusOK, e.call(http.MethodGet, "/api/subscription-plans/for-dma?dmaId="+marketID, "", nil, &out))
	return out
}

func findPlan(t *testing.T, plans []planView, name string) planView {
	t.Helper()
	for _, p := range plans {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("plan %q missing", name)
	return planView{}
}

type lawyerView struct {
	FirstName        string `json:"first_name"`
	SubscriptionType string `json:"subscription_type"`
	EffectiveTier    string `json:"effective_tier"`
}

type coverageView struct {
	Market         *marketView             `json:"dma"`
	Lawyers        []lawyerView            `json:"lawyers"`
	Grouped        map[string][]lawyerView `json:"grouped_by_subscription"`
	TierOrder      []string                `json:"tier_order"`
	FallbackReason string                  `json:"fallback_reason"`
}

func names(lawyers []lawyerView) []string {
	out := make([]string, 0, len(lawyers))
	for _, l := range lawyers {
		out = append(out, l.FirstName)
	}
	return out
}

func TestE2E_LookupByZip(t *testing.T) {
	e := newEnv(t)

	var result coverageView
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/by-zip?zipCode=30309", "", nil, &result))
	require.NotNil(t, result.Market)
	assert.Equal(t, 534, result.Market.Code)
	assert.Equal(t, "ORLANDO-DAYTONA BEACH-MELBOURNE", result.Market.Name)
	assert.Empty(t, result.FallbackReason)
	assert.ElementsMatch(t, []string{"Alicia", "Chen", "Evan"}, names(result.Lawyers))
	assert.Equal(t, []string{"premium", "enhanced", "basic", "free"}, result.TierOrder)

	// Alicia is free by default and premium in this market.
	assert.Contains(t, names(result.Grouped["premium"]), "Alicia")
	assert.NotContains(t, names(result.Grouped["free"]), "Alicia")
	for _, l := range result.Lawyers {
		if l.FirstName == "Alicia" {
			assert.Equal(t, "free", l.SubscriptionType)
			assert.Equal(t, "premium", l.EffectiveTier)
		}
	}

	// An unmapped zip still answers with the fallback list.
	result = coverageView{}
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/by-zip?zipCode=99950", "", nil, &result))
	assert.Nil(t, result.Market)
	assert.Equal(t, "market_not_found", result.FallbackReason)
	assert.Equal(t, []string{"Alicia", "Dana"}, names(result.Lawyers))

	assert.Equal(t, http.StatusBadRequest, e.call(http.MethodGet, "/api/lawyers/by-zip?zipCode=303", "", nil, nil))
}

func TestE2E_LookupByLocation(t *testing.T) {
	e := newEnv(t)

	var result coverageView
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/by-city?city=orlando&state=FL", "", nil, &result))
	require.NotNil(t, result.Market)
	assert.Equal(t, 534, result.Market.Code)
	assert.Contains(t, names(result.Grouped["premium"]), "Alicia")

	// Decatur holds the lowest mapped zip in Georgia.
	result = coverageView{}
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/by-state?state=GA", "", nil, &result))
	require.NotNil(t, result.Market)
	assert.Equal(t, 524, result.Market.Code)
	assert.ElementsMatch(t, []string{"Brandon", "Chen", "Evan"}, names(result.Lawyers))
	assert.Contains(t, names(result.Grouped["premium"]), "Chen")

	result = coverageView{}
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/by-city?city=Springfield", "", nil, &result))
	assert.Nil(t, result.Market)
	assert.Equal(t, "market_not_found", result.FallbackReason)

	assert.Equal(t, http.StatusBadRequest, e.call(http.MethodGet, "/api/lawyers/by-state", "", nil, nil))
}

func TestE2E_GroupOverrideLifecycle(t *testing.T) {
	e := newEnv(t)
	atlanta := e.marketByCode(524)
	orlando := e.marketByCode(534)

	global := e.effectivePlans(atlanta.ID)
	assert.Equal(t, "global", global.AssignmentType)
	premium := findPlan(t, global.Plans, "premium")
	assert.Equal(t, int64(99000), premium.PriceCents)

	var group struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, e.call(http.MethodPost, "/api/admin/subscription-plans/groups", adminUserID,
		map[string]any{"name": "Southeast", "dma_ids": []string{atlanta.ID}}, &group))
	require.NotEmpty(t, group.ID)

	require.Equal(t, http.StatusOK, e.call(http.MethodPost, "/api/admin/subscription-plans/groups/"+group.ID+"/overrides", adminUserID,
		map[string]any{"plan_id": premium.ID, "price_display": "$1,490"}, nil))

	grouped := e.effectivePlans(atlanta.ID)
	assert.Equal(t, "group", grouped.AssignmentType)
	assert.True(t, grouped.HasOverrides)
	overridden := findPlan(t, grouped.Plans, "premium")
	assert.Equal(t, int64(149000), overridden.PriceCents)
	assert.Equal(t, "$1,490", overridden.PriceDisplay)
	assert.True(t, overridden.PriceOverridden)
	require.NotNil(t, overridden.GroupName)
	assert.Equal(t, "Southeast", *overridden.GroupName)

	// Markets outside the group keep the catalog price.
	assert.Equal(t, int64(99000), findPlan(t, e.effectivePlans(orlando.ID).Plans, "premium").PriceCents)

	require.Equal(t, http.StatusOK, e.call(http.MethodDelete, "/api/admin/subscription-plans/groups/"+group.ID, adminUserID, nil, nil))

	reverted := e.effectivePlans(atlanta.ID)
	assert.Equal(t, "global", reverted.AssignmentType)
	assert.Equal(t, int64(99000), findPlan(t, reverted.Plans, "premium").PriceCents)
}

func TestE2E_AdminRequiresSuperAdmin(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodGet, "/api/admin/subscription-plans", "", nil, nil))
	assert.Equal(t, http.StatusForbidden, e.call(http.MethodGet, "/api/admin/subscription-plans", "someone-else", nil, nil))

	var plans []planView
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/admin/subscription-plans", adminUserID, nil, &plans))
	assert.Len(t, plans, 3)
}

func TestE2E_ReplaceServiceAreas(t *testing.T) {
	e := newEnv(t)
	atlanta := e.marketByCode(524)

	var fallback []struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
	}
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/fallback", "", nil, &fallback))
	require.NotEmpty(t, fallback)
	lawyerID, err := snowflake.ParseString(fallback[0].ID)
	require.NoError(t, err)

	body := map[string]any{"dmas": []map[string]string{{"dma_id": atlanta.ID, "subscription_type": "enhanced"}}}
	path := "/api/lawyers/" + lawyerID.String() + "/service-areas"

	assert.Equal(t, http.StatusForbidden, e.call(http.MethodPut, path, "someone-else", body, nil))

	var areas []struct {
		MarketID         string `json:"dma_id"`
		SubscriptionType string `json:"subscription_type"`
	}
	require.Equal(t, http.StatusOK, e.call(http.MethodPut, path, adminUserID, body, &areas))
	require.Len(t, areas, 1)
	assert.Equal(t, atlanta.ID, areas[0].MarketID)
	assert.Equal(t, "enhanced", areas[0].SubscriptionType)

	var listed []struct {
		MarketID string `json:"dma_id"`
	}
	require.Equal(t, http.StatusOK, e.call(http.MethodGet, "/api/lawyers/"+lawyerID.String()+"/dmas", "", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, atlanta.ID, listed[0].MarketID)
}

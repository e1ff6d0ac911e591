package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	"github.com/smallbiznis/lawdirectory/internal/config"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	effectiveplandomain "github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

type fakeCoverageService struct {
	coveragedomain.Service
	resolve  func(ctx context.Context, zip string) (*coveragedomain.Result, error)
	location func(ctx context.Context, req marketdomain.LocationRequest) (*coveragedomain.Result, error)
	replace  func(ctx context.Context, lawyerID string, areas []coveragedomain.AreaInput) ([]coveragedomain.LawyerMarketResponse, error)
}

func (f *fakeCoverageService) Resolve(ctx context.Context, zip string) (*coveragedomain.Result, error) {
	return f.resolve(ctx, zip)
}

func (f *fakeCoverageService) ResolveLocation(ctx context.Context, req marketdomain.LocationRequest) (*coveragedomain.Result, error) {
	return f.location(ctx, req)
}

func (f *fakeCoverageService) ReplaceCoverage(ctx context.Context, lawyerID string, areas []coveragedomain.AreaInput) ([]coveragedomain.LawyerMarketResponse, error) {
	return f.replace(ctx, lawyerID, areas)
}

type fakeMarketService struct {
	marketdomain.Service
	markets map[string]marketdomain.Response
	zips    map[string][]string
}

func (f *fakeMarketService) GetMarket(ctx context.Context, id string) (*marketdomain.Response, error) {
	market, ok := f.markets[id]
	if !ok {
		return nil, marketdomain.ErrNotFound
	}
	return &market, nil
}

func (f *fakeMarketService) MemberZipCodes(ctx context.Context, id string) ([]string, error) {
	if _, ok := f.markets[id]; !ok {
		return nil, marketdomain.ErrNotFound
	}
	return f.zips[id], nil
}

type fakeEffectivePlanService struct {
	result *effectiveplandomain.Result
	err    error
}

func (f *fakeEffectivePlanService) GetEffectivePlans(ctx context.Context, marketID string) (*effectiveplandomain.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePlanService struct {
	plandomain.Service
}

type fakePlanGroupService struct {
	plangroupdomain.Service
	upsertErr      error
	deletedMarkets []string
	removed        []string
}

func (f *fakePlanGroupService) UpsertOverride(ctx context.Context, groupID string, req plangroupdomain.OverrideRequest) (*plangroupdomain.OverrideResponse, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &plangroupdomain.OverrideResponse{GroupID: groupID, PlanID: req.PlanID, IsActive: true}, nil
}

func (f *fakePlanGroupService) DeleteMarketExceptions(ctx context.Context, marketIDs []string) (int64, error) {
	if len(marketIDs) == 0 {
		return 0, plangroupdomain.ErrInvalidMarketIDs
	}
	f.deletedMarkets = marketIDs
	return int64(len(marketIDs)), nil
}

func (f *fakePlanGroupService) RemoveMarkets(ctx context.Context, groupID string, marketIDs []string) (*plangroupdomain.AssignmentResult, error) {
	if len(marketIDs) == 0 {
		return nil, plangroupdomain.ErrInvalidMarketIDs
	}
	f.removed = marketIDs
	return &plangroupdomain.AssignmentResult{Updated: len(marketIDs), TargetType: plangroupdomain.AssignmentGlobal}, nil
}

// fakeAuthzService grants by user id: admins get every capability and
// owners map a user to the one lawyer they may edit.
type fakeAuthzService struct {
	admins map[string]bool
	owners map[string]snowflake.ID
}

func (f *fakeAuthzService) Authorize(ctx context.Context, userID string, object string, action string) error {
	if f.admins[userID] {
		return nil
	}
	return authorization.ErrForbidden
}

func (f *fakeAuthzService) AuthorizeLawyerCoverage(ctx context.Context, userID string, lawyerID snowflake.ID) error {
	if f.admins[userID] {
		return nil
	}
	if owned, ok := f.owners[userID]; ok && owned == lawyerID {
		return nil
	}
	return authorization.ErrForbidden
}

type testServer struct {
	server    *Server
	coverage  *fakeCoverageService
	markets   *fakeMarketService
	effective *fakeEffectivePlanService
	groups    *fakePlanGroupService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{AuthJWTSecret: testJWTSecret}
	ts := &testServer{
		coverage:  &fakeCoverageService{},
		markets:   &fakeMarketService{markets: map[string]marketdomain.Response{}, zips: map[string][]string{}},
		effective: &fakeEffectivePlanService{},
		groups:    &fakePlanGroupService{},
	}
	ts.server = NewServer(ServerParams{
		Gin:          NewEngine(cfg, observability.Config{Environment: "test"}, nil),
		Cfg:          cfg,
		AuthzSvc:     &fakeAuthzService{admins: map[string]bool{"admin-1": true}, owners: map[string]snowflake.ID{"lawyer-user": 42}},
		MarketSvc:    ts.markets,
		CoverageSvc:  ts.coverage,
		PlanSvc:      &fakePlanService{},
		PlanGroupSvc: ts.groups,
		EffectiveSvc: ts.effective,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

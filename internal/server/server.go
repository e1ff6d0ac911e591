package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/coverage"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan"
	effectiveplandomain "github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	"github.com/smallbiznis/lawdirectory/internal/market"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	obsmiddleware "github.com/smallbiznis/lawdirectory/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lawdirectory/internal/observability/metrics"
	obstracing "github.com/smallbiznis/lawdirectory/internal/observability/tracing"
	"github.com/smallbiznis/lawdirectory/internal/plan"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	"github.com/smallbiznis/lawdirectory/internal/plangroup"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"github.com/smallbiznis/lawdirectory/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	market.Module,
	coverage.Module,
	plan.Module,
	plangroup.Module,
	effectiveplan.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(cfg config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id")
	corsCfg.ExposeHeaders = []string{"X-Request-Id", "Retry-After"}
	corsCfg.MaxAge = 12 * time.Hour
	return corsCfg
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// RouteSet selects which route groups a binary serves.
type RouteSet int

const (
	RoutesAll RouteSet = iota
	RoutesPublic
	RoutesAdmin
)

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	authzSvc      authorization.Service
	marketSvc     marketdomain.Service
	coverageSvc   coveragedomain.Service
	planSvc       plandomain.Service
	planGroupSvc  plangroupdomain.Service
	effectiveSvc  effectiveplandomain.Service
	obsMetrics    *obsmetrics.Metrics
	lookupLimiter *ratelimit.LookupLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	AuthzSvc      authorization.Service
	MarketSvc     marketdomain.Service
	CoverageSvc   coveragedomain.Service
	PlanSvc       plandomain.Service
	PlanGroupSvc  plangroupdomain.Service
	EffectiveSvc  effectiveplandomain.Service
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
	LookupLimiter *ratelimit.LookupLimiter `optional:"true"`
	Routes        RouteSet                 `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		authzSvc:      p.AuthzSvc,
		marketSvc:     p.MarketSvc,
		coverageSvc:   p.CoverageSvc,
		planSvc:       p.PlanSvc,
		planGroupSvc:  p.PlanGroupSvc,
		effectiveSvc:  p.EffectiveSvc,
		obsMetrics:    p.ObsMetrics,
		lookupLimiter: p.LookupLimiter,
	}

	if p.Routes != RoutesAdmin {
		svc.registerPublicRoutes()
		svc.registerLawyerRoutes()
	}
	if p.Routes != RoutesPublic {
		svc.registerAdminRoutes()
	}

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api", s.LookupRateLimit())

	// -------- Coverage --------
	api.GET("/lawyers/by-zip", s.GetLawyersByZip)
	api.GET("/lawyers/by-city", s.GetLawyersByCity)
	api.GET("/lawyers/by-state", s.GetLawyersByState)
	api.GET("/lawyers/fallback", s.ListFallbackLawyers)
	api.GET("/lawyers/:id/dmas", s.ListLawyerMarkets)
	api.GET("/subscription-types", s.ListSubscriptionTypes)

	// -------- Markets --------
	api.GET("/autocomplete/zip", s.AutocompleteZip)
	api.GET("/markets", s.ListMarkets)
	api.GET("/markets/resolve", s.ResolveLocation)
	api.GET("/markets/:id", s.GetMarket)

	// -------- Plans --------
	api.GET("/subscription-plans/for-dma", s.GetEffectivePlans)
}

func (s *Server) registerLawyerRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.PUT("/lawyers/:id/service-areas", s.authorizeLawyerCoverage(), s.ReplaceServiceAreas)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())
	plans := admin.Group("/subscription-plans")

	// -------- Catalog --------
	plans.GET("", s.authorizeAction(authorization.ObjectPlan, authorization.ActionPlanView), s.ListPlans)
	plans.POST("", s.authorizeAction(authorization.ObjectPlan, authorization.ActionPlanManage), s.CreatePlan)
	plans.PUT("/:id/features", s.authorizeAction(authorization.ObjectPlan, authorization.ActionPlanManage), s.ReplacePlanFeatures)
	plans.POST("/:id/features", s.authorizeAction(authorization.ObjectPlan, authorization.ActionPlanManage), s.AddPlanFeature)

	// -------- Groups --------
	groupView := s.authorizeAction(authorization.ObjectPlanGroup, authorization.ActionGroupView)
	groupManage := s.authorizeAction(authorization.ObjectPlanGroup, authorization.ActionGroupManage)
	groups := plans.Group("/groups")
	{
		groups.GET("", groupView, s.ListPlanGroups)
		groups.POST("", groupManage, s.CreatePlanGroup)
		groups.GET("/:id", groupView, s.GetPlanGroup)
		groups.PUT("/:id", groupManage, s.UpdatePlanGroup)
		groups.DELETE("/:id", groupManage, s.DeletePlanGroup)

		groups.GET("/:id/dmas", groupView, s.ListGroupMarkets)
		groups.POST("/:id/dmas", groupManage, s.AssignGroupMarkets)
		groups.DELETE("/:id/dmas", groupManage, s.RemoveGroupMarkets)

		groups.GET("/:id/overrides", groupView, s.ListGroupOverrides)
		groups.POST("/:id/overrides", groupManage, s.UpsertGroupOverride)
		groups.DELETE("/:id/overrides", groupManage, s.DeleteGroupOverride)
	}

	// -------- Assignments --------
	plans.GET("/dma-assignments", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentView), s.ListMarketAssignments)
	plans.POST("/dma-assignments", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentManage), s.ApplyMarketAssignment)
	plans.DELETE("/dma-overrides", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentManage), s.DeleteMarketExceptions)
}

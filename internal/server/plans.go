package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	effectiveplandomain "github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
)

func (s *Server) GetEffectivePlans(c *gin.Context) {
	marketID := firstQuery(c, "dmaId", "dma_id")
	if marketID == "" {
		AbortWithError(c, effectiveplandomain.ErrInvalidMarketID)
		return
	}

	resp, err := s.effectiveSvc.GetEffectivePlans(c.Request.Context(), marketID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if id, err := snowflake.ParseString(resp.MarketID); err == nil {
		c.Set("market_id", id.Int64())
	}
	c.Set("resolution_outcome", resp.AssignmentType)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createPlanRequest struct {
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	PriceCents    int64   `json:"price_cents"`
	PriceDisplay  string  `json:"price_display"`
	BillingPeriod string  `json:"billing_period"`
	Description   *string `json:"description"`
	IsRecommended bool    `json:"is_recommended"`
	SortOrder     int     `json:"sort_order"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreateRequest{
		Name:          strings.TrimSpace(req.Name),
		DisplayName:   strings.TrimSpace(req.DisplayName),
		PriceCents:    req.PriceCents,
		PriceDisplay:  strings.TrimSpace(req.PriceDisplay),
		BillingPeriod: strings.TrimSpace(req.BillingPeriod),
		Description:   req.Description,
		IsRecommended: req.IsRecommended,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.planSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReplacePlanFeatures(c *gin.Context) {
	var req struct {
		Features []plandomain.FeatureInput `json:"features"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planSvc.ReplaceFeatures(c.Request.Context(), id, req.Features)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddPlanFeature(c *gin.Context) {
	var req plandomain.FeatureInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planSvc.AddFeature(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
)

const (
	outcomeResolved = "resolved"
)

func (s *Server) GetLawyersByZip(c *gin.Context) {
	zip := firstQuery(c, "zipCode", "zip_code", "zip")
	if zip == "" {
		AbortWithError(c, marketdomain.ErrInvalidZipCode)
		return
	}

	resp, err := s.coverageSvc.Resolve(c.Request.Context(), zip)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	annotateResolution(c, resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetLawyersByCity covers the market of ?city=, narrowed by an optional ?state=.
func (s *Server) GetLawyersByCity(c *gin.Context) {
	city := firstQuery(c, "city")
	if city == "" {
		AbortWithError(c, coveragedomain.ErrInvalidCity)
		return
	}

	s.resolveLocation(c, marketdomain.LocationRequest{City: city, State: firstQuery(c, "state")})
}

func (s *Server) GetLawyersByState(c *gin.Context) {
	state := firstQuery(c, "state")
	if state == "" {
		AbortWithError(c, coveragedomain.ErrInvalidState)
		return
	}

	s.resolveLocation(c, marketdomain.LocationRequest{State: state})
}

func (s *Server) resolveLocation(c *gin.Context, req marketdomain.LocationRequest) {
	resp, err := s.coverageSvc.ResolveLocation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	annotateResolution(c, resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// annotateResolution exposes the resolved market to the access log.
func annotateResolution(c *gin.Context, resp *coveragedomain.Result) {
	if resp == nil {
		return
	}
	if resp.Market != nil {
		if id, err := snowflake.ParseString(resp.Market.ID); err == nil {
			c.Set("market_id", id.Int64())
		}
	}
	outcome := resp.FallbackReason
	if outcome == "" {
		outcome = outcomeResolved
	}
	c.Set("resolution_outcome", outcome)
}

func (s *Server) ListFallbackLawyers(c *gin.Context) {
	resp, err := s.coverageSvc.ListFallback(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptionTypes(c *gin.Context) {
	resp, err := s.coverageSvc.ListSubscriptionTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLawyerMarkets(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.coverageSvc.ListLawyerMarkets(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type replaceServiceAreasRequest struct {
	Markets []coveragedomain.AreaInput `json:"dmas"`
}

func (s *Server) ReplaceServiceAreas(c *gin.Context) {
	var req replaceServiceAreasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	areas := make([]coveragedomain.AreaInput, 0, len(req.Markets))
	for _, area := range req.Markets {
		areas = append(areas, coveragedomain.AreaInput{
			MarketID:         strings.TrimSpace(area.MarketID),
			SubscriptionType: strings.TrimSpace(area.SubscriptionType),
		})
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.coverageSvc.ReplaceCoverage(c.Request.Context(), id, areas)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
)

func (s *Server) AutocompleteZip(c *gin.Context) {
	prefix := firstQuery(c, "q", "prefix")
	resp, err := s.marketSvc.SuggestZipCodes(c.Request.Context(), prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveLocation(c *gin.Context) {
	var query struct {
		City  string `form:"city"`
		State string `form:"state"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketSvc.ResolveLocation(c.Request.Context(), marketdomain.LocationRequest{
		City:  strings.TrimSpace(query.City),
		State: strings.TrimSpace(query.State),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMarkets(c *gin.Context) {
	resp, err := s.marketSvc.ListMarkets(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetMarket returns the market and, with ?include=zip_codes, its member zips.
func (s *Server) GetMarket(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := c.Request.Context()

	market, err := s.marketSvc.GetMarket(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !strings.EqualFold(strings.TrimSpace(c.Query("include")), "zip_codes") {
		c.JSON(http.StatusOK, gin.H{"data": market})
		return
	}

	zips, err := s.marketSvc.MemberZipCodes(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":        market.ID,
		"code":      market.Code,
		"name":      market.Name,
		"slug":      market.Slug,
		"zip_codes": zips,
	}})
}

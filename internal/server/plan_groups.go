package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
)

type marketIDsRequest struct {
	MarketIDs []string `json:"dma_ids"`
}

func (s *Server) CreatePlanGroup(c *gin.Context) {
	var req plangroupdomain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.planGroupSvc.CreateGroup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPlanGroups(c *gin.Context) {
	resp, err := s.planGroupSvc.ListGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlanGroup(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.GetGroup(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePlanGroup(c *gin.Context) {
	var req plangroupdomain.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.UpdateGroup(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePlanGroup(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.planGroupSvc.DeleteGroup(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}

func (s *Server) ListGroupMarkets(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.ListGroupMarkets(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AssignGroupMarkets(c *gin.Context) {
	var req marketIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.AssignMarkets(c.Request.Context(), id, parseIDList(req.MarketIDs...))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RemoveGroupMarkets takes the ids from ?dma_ids= or, failing that, the body.
func (s *Server) RemoveGroupMarkets(c *gin.Context) {
	marketIDs := parseIDList(c.QueryArray("dma_ids")...)
	if len(marketIDs) == 0 && c.Request.ContentLength > 0 {
		var req marketIDsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		marketIDs = parseIDList(req.MarketIDs...)
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.RemoveMarkets(c.Request.Context(), id, marketIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGroupOverrides(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.ListOverrides(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertGroupOverride(c *gin.Context) {
	var req plangroupdomain.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PlanID = strings.TrimSpace(req.PlanID)

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planGroupSvc.UpsertOverride(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGroupOverride(c *gin.Context) {
	planID := firstQuery(c, "plan_id", "planId")
	if planID == "" {
		AbortWithError(c, plangroupdomain.ErrInvalidPlanID)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.planGroupSvc.DeleteOverride(c.Request.Context(), id, planID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"group_id": id, "plan_id": planID, "deleted": true}})
}

func (s *Server) ListMarketAssignments(c *gin.Context) {
	resp, err := s.planGroupSvc.ListAssignments(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApplyMarketAssignment(c *gin.Context) {
	var req plangroupdomain.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.MarketIDs = parseIDList(req.MarketIDs...)
	req.TargetType = strings.ToLower(strings.TrimSpace(req.TargetType))
	req.TargetID = strings.TrimSpace(req.TargetID)

	resp, err := s.planGroupSvc.ApplyAssignment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMarketExceptions(c *gin.Context) {
	marketIDs := parseIDList(c.QueryArray("dma_ids")...)
	deleted, err := s.planGroupSvc.DeleteMarketExceptions(c.Request.Context(), marketIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": deleted}})
}

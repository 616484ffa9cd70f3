package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
)

type createRewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CostPoints  int64  `json:"cost_points"`
	Inventory   *int64 `json:"inventory,omitempty"`
}

type updateRewardRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CostPoints  *int64  `json:"cost_points,omitempty"`
	Inventory   *int64  `json:"inventory,omitempty"`
}

func (s *Server) CreateReward(c *gin.Context) {
	var req createRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rewardSvc.Create(c.Request.Context(), rewarddomain.CreateRequest{
		TenantID:    currentTenantID(c),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CostPoints:  req.CostPoints,
		Inventory:   req.Inventory,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRewards(c *gin.Context) {
	var query struct {
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	activeOnly := active != nil && *active
	resp, err := s.rewardSvc.List(c.Request.Context(), currentTenantID(c), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRewardByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.rewardSvc.GetByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateReward(c *gin.Context) {
	var req updateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rewardSvc.Update(c.Request.Context(), rewarddomain.UpdateRequest{
		TenantID:    currentTenantID(c),
		ID:          strings.TrimSpace(c.Param("id")),
		Name:        trimStringPtr(req.Name),
		Description: trimStringPtr(req.Description),
		CostPoints:  req.CostPoints,
		Inventory:   req.Inventory,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveReward(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.rewardSvc.Archive(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

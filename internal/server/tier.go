package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
)

type createTierRequest struct {
	Name       string   `json:"name"`
	MinPoints  int64    `json:"min_points"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

type updateTierRequest struct {
	Name       *string  `json:"name,omitempty"`
	MinPoints  *int64   `json:"min_points,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

func (s *Server) CreateTier(c *gin.Context) {
	var req createTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tierSvc.Create(c.Request.Context(), tierdomain.CreateRequest{
		TenantID:   currentTenantID(c),
		Name:       strings.TrimSpace(req.Name),
		MinPoints:  req.MinPoints,
		Multiplier: req.Multiplier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTiers(c *gin.Context) {
	resp, err := s.tierSvc.List(c.Request.Context(), currentTenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTierByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.tierSvc.GetByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTier(c *gin.Context) {
	var req updateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tierSvc.Update(c.Request.Context(), tierdomain.UpdateRequest{
		TenantID:   currentTenantID(c),
		ID:         strings.TrimSpace(c.Param("id")),
		Name:       trimStringPtr(req.Name),
		MinPoints:  req.MinPoints,
		Multiplier: req.Multiplier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTier(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.tierSvc.Delete(c.Request.Context(), currentTenantID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

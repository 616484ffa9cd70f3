package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
)

type createCampaignRequest struct {
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

type updateCampaignRequest struct {
	Name       *string    `json:"name,omitempty"`
	Multiplier *float64   `json:"multiplier,omitempty"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.campaignSvc.Create(c.Request.Context(), campaigndomain.CreateRequest{
		TenantID:   currentTenantID(c),
		Name:       strings.TrimSpace(req.Name),
		Multiplier: req.Multiplier,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCampaigns(c *gin.Context) {
	resp, err := s.campaignSvc.List(c.Request.Context(), currentTenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCampaignByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.campaignSvc.GetByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCampaign(c *gin.Context) {
	var req updateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.campaignSvc.Update(c.Request.Context(), campaigndomain.UpdateRequest{
		TenantID:   currentTenantID(c),
		ID:         strings.TrimSpace(c.Param("id")),
		Name:       trimStringPtr(req.Name),
		Multiplier: req.Multiplier,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LaunchCampaign(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.campaignSvc.Launch(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EndCampaign(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.campaignSvc.End(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

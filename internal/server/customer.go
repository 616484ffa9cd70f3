package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
)

type createCustomerRequest struct {
	ExternalRef string `json:"external_ref"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

type updateCustomerRequest struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateRequest{
		TenantID:    currentTenantID(c),
		ExternalRef: strings.TrimSpace(req.ExternalRef),
		Email:       strings.TrimSpace(req.Email),
		Name:        strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		Limit       string `form:"limit"`
		Offset      string `form:"offset"`
		ExternalRef string `form:"external_ref"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if ref := strings.TrimSpace(query.ExternalRef); ref != "" {
		resp, err := s.customerSvc.GetByExternalRef(c.Request.Context(), currentTenantID(c), ref)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	limit, err := parseOptionalInt64(query.Limit)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	offset, err := parseOptionalInt64(query.Offset)
	if err != nil {
		AbortWithError(c, newValidationError("offset", "invalid_offset", "invalid offset"))
		return
	}

	req := customerdomain.ListRequest{TenantID: currentTenantID(c)}
	if limit != nil {
		req.Limit = int(*limit)
	}
	if offset != nil {
		req.Offset = int(*offset)
	}

	resp, err := s.customerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.customerSvc.GetByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateRequest{
		TenantID: currentTenantID(c),
		ID:       strings.TrimSpace(c.Param("id")),
		Email:    trimStringPtr(req.Email),
		Name:     trimStringPtr(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

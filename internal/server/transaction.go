package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
)

type earnPointsRequest struct {
	CustomerID     string         `json:"customer_id"`
	Amount         float64        `json:"amount"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type redeemRewardRequest struct {
	CustomerID     string         `json:"customer_id"`
	RewardID       string         `json:"reward_id"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type adjustPointsRequest struct {
	CustomerID     string         `json:"customer_id"`
	Points         int64          `json:"points"`
	Reason         string         `json:"reason"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (s *Server) EarnPoints(c *gin.Context) {
	var req earnPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.txnSvc.Earn(c.Request.Context(), txndomain.EarnRequest{
		TenantID:       currentTenantID(c),
		CustomerID:     strings.TrimSpace(req.CustomerID),
		Amount:         req.Amount,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RedeemReward(c *gin.Context) {
	var req redeemRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.txnSvc.Redeem(c.Request.Context(), txndomain.RedeemRequest{
		TenantID:       currentTenantID(c),
		CustomerID:     strings.TrimSpace(req.CustomerID),
		RewardID:       strings.TrimSpace(req.RewardID),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdjustPoints(c *gin.Context) {
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.txnSvc.Adjust(c.Request.Context(), txndomain.AdjustRequest{
		TenantID:       currentTenantID(c),
		CustomerID:     strings.TrimSpace(req.CustomerID),
		Points:         req.Points,
		Reason:         strings.TrimSpace(req.Reason),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		CustomerID string `form:"customer_id"`
		Limit      string `form:"limit"`
		Offset     string `form:"offset"`
		PageToken  string `form:"page_token"`
		PageSize   string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
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

	pageSize, err := parseOptionalInt64(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	req := txndomain.ListRequest{
		TenantID:   currentTenantID(c),
		CustomerID: strings.TrimSpace(query.CustomerID),
		PageToken:  strings.TrimSpace(query.PageToken),
	}
	if limit != nil {
		req.Limit = int(*limit)
	}
	if offset != nil {
		req.Offset = int(*offset)
	}
	if pageSize != nil {
		req.PageSize = int(*pageSize)
	}

	resp, err := s.txnSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.txnSvc.GetByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

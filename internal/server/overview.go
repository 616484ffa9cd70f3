package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loyaltyTotals struct {
	Customers      int64 `json:"customers"`
	ActiveRewards  int64 `json:"active_rewards"`
	ActiveTiers    int64 `json:"tiers"`
	Transactions   int64 `json:"transactions"`
	PointsEarned   int64 `json:"points_earned"`
	PointsRedeemed int64 `json:"points_redeemed"`
}

// AdminOverview aggregates the program headline numbers for the admin
// dashboard.
func (s *Server) AdminOverview(c *gin.Context) {
	resolved := currentAccess(c)
	if resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	ctx := c.Request.Context()
	tenantID := int64(resolved.TenantID)

	var totals loyaltyTotals
	if err := s.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM customers WHERE tenant_id = ?) AS customers,
			(SELECT COUNT(*) FROM rewards WHERE tenant_id = ? AND active) AS active_rewards,
			(SELECT COUNT(*) FROM tiers WHERE tenant_id = ?) AS active_tiers,
			(SELECT COUNT(*) FROM transactions WHERE tenant_id = ?) AS transactions,
			(SELECT COALESCE(SUM(points), 0) FROM transactions WHERE tenant_id = ? AND txn_type = 'earn') AS points_earned,
			(SELECT COALESCE(SUM(-points), 0) FROM transactions WHERE tenant_id = ? AND txn_type = 'redeem') AS points_redeemed
	`, tenantID, tenantID, tenantID, tenantID, tenantID, tenantID).
		Scan(&totals).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id": resolved.TenantID.String(),
		"ui_role":   resolved.UIRole,
		"totals":    totals,
	}})
}

// UserOverview is the read-only landing page for non-admin members.
func (s *Server) UserOverview(c *gin.Context) {
	resolved := currentAccess(c)
	if resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	ctx := c.Request.Context()
	tenantID := int64(resolved.TenantID)

	var summary struct {
		Customers     int64 `json:"customers"`
		ActiveRewards int64 `json:"active_rewards"`
	}
	if err := s.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM customers WHERE tenant_id = ?) AS customers,
			(SELECT COUNT(*) FROM rewards WHERE tenant_id = ? AND active) AS active_rewards
	`, tenantID, tenantID).
		Scan(&summary).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id": resolved.TenantID.String(),
		"ui_role":   resolved.UIRole,
		"summary":   summary,
	}})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes fixture data created by end-to-end suites. Hidden in
// production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.Environment == "production" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	like := prefix + "%"

	var tenantIDs []int64
	if err := s.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&tenantIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if len(tenantIDs) > 0 {
		var teamIDs []int64
		if err := s.db.WithContext(ctx).
			Table("tenants").
			Select("team_id").
			Where("id IN ?", tenantIDs).
			Scan(&teamIDs).Error; err != nil {
			AbortWithError(c, err)
			return
		}

		for _, stmt := range []string{
			`DELETE FROM transactions WHERE tenant_id IN ?`,
			`DELETE FROM customers WHERE tenant_id IN ?`,
			`DELETE FROM rewards WHERE tenant_id IN ?`,
			`DELETE FROM tiers WHERE tenant_id IN ?`,
			`DELETE FROM campaigns WHERE tenant_id IN ?`,
			`DELETE FROM tenant_invites WHERE tenant_id IN ?`,
		} {
			if err := s.db.WithContext(ctx).Exec(stmt, tenantIDs).Error; err != nil {
				AbortWithError(c, err)
				return
			}
		}

		if len(teamIDs) > 0 {
			if err := s.db.WithContext(ctx).Exec(
				`DELETE FROM team_members WHERE team_id IN ?`, teamIDs,
			).Error; err != nil {
				AbortWithError(c, err)
				return
			}
		}
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM tenants WHERE id IN ?`, tenantIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
		if len(teamIDs) > 0 {
			if err := s.db.WithContext(ctx).Exec(
				`DELETE FROM teams WHERE id IN ?`, teamIDs,
			).Error; err != nil {
				AbortWithError(c, err)
				return
			}
		}
	}

	var userIDs []int64
	if err := s.db.WithContext(ctx).
		Table("users").
		Select("id").
		Where("email LIKE ?", like).
		Scan(&userIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if len(userIDs) > 0 {
		for _, stmt := range []string{
			`DELETE FROM sessions WHERE user_id IN ?`,
			`DELETE FROM email_verifications WHERE user_id IN ?`,
			`DELETE FROM team_members WHERE user_id IN ?`,
			`DELETE FROM users WHERE id IN ?`,
		} {
			if err := s.db.WithContext(ctx).Exec(stmt, userIDs).Error; err != nil {
				AbortWithError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

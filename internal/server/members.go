package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	tenantdomain "github.com/loyalops/perkdesk/internal/tenant/domain"
)

type inviteMembersRequest struct {
	Invites []inviteMemberItem `json:"invites"`
}

type inviteMemberItem struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type updateMemberRolesRequest struct {
	Roles []string `json:"roles"`
}

func (s *Server) ListMembers(c *gin.Context) {
	resolved := currentAccess(c)
	if resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	members, err := s.tenantSvc.ListMembers(c.Request.Context(), resolved.TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) InviteMembers(c *gin.Context) {
	identity := currentIdentity(c)
	resolved := currentAccess(c)
	if identity == nil || resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	var req inviteMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Invites) == 0 {
		AbortWithError(c, newValidationError("invites", "required", "at least one invite is required"))
		return
	}

	invites := make([]tenantdomain.InviteRequest, 0, len(req.Invites))
	for _, item := range req.Invites {
		invites = append(invites, tenantdomain.InviteRequest{
			Email: strings.TrimSpace(item.Email),
			Roles: item.Roles,
		})
	}

	if err := s.tenantSvc.InviteMembers(c.Request.Context(), identity.UserID, resolved.TenantID, invites); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) UpdateMemberRoles(c *gin.Context) {
	resolved := currentAccess(c)
	if resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	memberID, err := parseMemberID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMemberRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Roles) == 0 {
		AbortWithError(c, newValidationError("roles", "required", "roles are required"))
		return
	}

	if err := s.tenantSvc.UpdateMemberRoles(c.Request.Context(), resolved.TenantID, memberID, req.Roles); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RemoveMember(c *gin.Context) {
	resolved := currentAccess(c)
	if resolved == nil {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	memberID, err := parseMemberID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.tenantSvc.RemoveMember(c.Request.Context(), resolved.TenantID, memberID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseMemberID(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param("userId"))
	if raw == "" {
		return 0, newValidationError("userId", "required", "user id is required")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError("userId", "invalid_user_id", "invalid user id")
	}
	return id, nil
}

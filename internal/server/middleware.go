package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyalops/perkdesk/internal/access"
	authdomain "github.com/loyalops/perkdesk/internal/auth/domain"
	"github.com/loyalops/perkdesk/internal/observability/logger"
	"github.com/loyalops/perkdesk/internal/tenantctx"
	"go.uber.org/zap"
)

const (
	ctxIdentityKey = "perkdesk.identity"
	ctxAccessKey   = "perkdesk.access"
)

// sessionIdentity resolves the request cookie into an identity. A missing,
// invalid or expired session yields a nil identity; an unreachable auth
// backend yields an error so callers never mistake an outage for anonymity.
func (s *Server) sessionIdentity(c *gin.Context) (*access.Identity, error) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return nil, nil
	}

	ctx := c.Request.Context()
	sess, err := s.authsvc.Authenticate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidSession),
			errors.Is(err, authdomain.ErrSessionExpired),
			errors.Is(err, authdomain.ErrSessionRevoked):
			s.sessions.Clear(c)
			return nil, nil
		default:
			return nil, err
		}
	}

	user, err := s.authsvc.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			s.sessions.Clear(c)
			return nil, nil
		}
		return nil, err
	}

	return &access.Identity{
		UserID:        user.ID,
		EmailVerified: user.EmailVerified,
	}, nil
}

// WebAuthRequired gates JSON endpoints that need a logged-in user but no
// tenant context.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.sessionIdentity(c)
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(ctxIdentityKey, identity)
		c.Request = c.Request.WithContext(
			tenantctx.WithUserID(c.Request.Context(), int64(identity.UserID)),
		)
		c.Next()
	}
}

// TenantAccess gates every tenant-scoped route through the access state
// machine. Outcomes are a pass-through or a single 302; tenant content is
// never rendered on a failure path.
func (s *Server) TenantAccess(area access.Area) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := strings.TrimSpace(c.Param("slug"))
		ctx := c.Request.Context()

		identity, err := s.sessionIdentity(c)
		if err != nil {
			// Auth backend outage: fail closed with the generic redirect.
			logger.FromContext(ctx).Error("session lookup failed", zap.Error(err))
			_ = c.Error(ErrServiceUnavailable)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		decision := s.gate.Decide(ctx, identity, slug, area)
		if !decision.Allow {
			if decision.Err != nil {
				_ = c.Error(decision.Err)
			}
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
			return
		}

		c.Set(ctxIdentityKey, identity)
		c.Set(ctxAccessKey, decision.Access)

		ctx = tenantctx.WithUserID(ctx, int64(identity.UserID))
		ctx = tenantctx.WithTenantID(ctx, int64(decision.Access.TenantID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// authorizeTenantAction checks the fine-grained capability for one admin
// action. The access gate has already granted the area; this decides the
// specific verb.
func (s *Server) authorizeTenantAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		resolved := currentAccess(c)
		if identity == nil || resolved == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := fmt.Sprintf("user:%s", identity.UserID.String())
		err := s.authzSvc.Authorize(c.Request.Context(), actor, resolved.TenantID.String(), object, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

func currentIdentity(c *gin.Context) *access.Identity {
	value, ok := c.Get(ctxIdentityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*access.Identity)
	if !ok {
		return nil
	}
	return identity
}

func currentAccess(c *gin.Context) *access.ResolvedAccess {
	value, ok := c.Get(ctxAccessKey)
	if !ok {
		return nil
	}
	resolved, ok := value.(*access.ResolvedAccess)
	if !ok {
		return nil
	}
	return resolved
}

// currentTenantID returns the tenant resolved by the gate as a string for
// the string-typed service requests.
func currentTenantID(c *gin.Context) string {
	resolved := currentAccess(c)
	if resolved == nil {
		return ""
	}
	return resolved.TenantID.String()
}

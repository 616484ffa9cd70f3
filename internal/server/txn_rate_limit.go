package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loyalops/perkdesk/internal/observability/logger"
	obsmetrics "github.com/loyalops/perkdesk/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	rateLimitReasonTenantRate   = "tenant-rate"
	rateLimitReasonEndpointRate = "endpoint-rate"
)

// TxnIngestRateLimit guards the transaction ingest endpoints with the
// per-tenant and per-endpoint token buckets. A nil or disabled limiter is a
// pass-through.
func (s *Server) TxnIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.txnLimiter == nil || !s.txnLimiter.Enabled() {
			c.Next()
			return
		}

		tenantID := currentTenantID(c)
		if tenantID == "" {
			AbortWithError(c, ErrTenantRequired)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.txnLimiter.AllowTenant(ctx, tenantID)
		if err != nil {
			logger.FromContext(ctx).Warn("txn ingest tenant rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyTxnIngestRateLimit(c, endpoint, tenantID, rateLimitReasonTenantRate, result.RetryAfter, s.obsMetrics)
			return
		}

		result, err = s.txnLimiter.AllowEndpoint(ctx, tenantID)
		if err != nil {
			logger.FromContext(ctx).Warn("txn ingest endpoint rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyTxnIngestRateLimit(c, endpoint, tenantID, rateLimitReasonEndpointRate, result.RetryAfter, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, tenantID, s.obsMetrics)
		c.Next()
	}
}

func denyTxnIngestRateLimit(c *gin.Context, endpoint, tenantID, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("txn ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, tenantID, reason, metrics)

	seconds := int64(retryAfter / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.FormatInt(seconds, 10))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint, tenantID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, tenantID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, tenantID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, tenantID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

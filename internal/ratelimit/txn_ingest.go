package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/loyalops/perkdesk/internal/config"
)

const (
	keyTxnIngestTenant   = "txn:ingest:tenant:%s"
	keyTxnIngestEndpoint = "txn:ingest:endpoint:%s"
	keyRedeemLock        = "redeem:lock:%s:%s"

	defaultRedeemLockTTL = 10 * time.Second
)

// TxnIngestLimiter bounds transaction ingestion per tenant and per endpoint,
// and serializes reward redemptions per customer. A nil limiter (rate
// limiting disabled) allows everything.
type TxnIngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	tenantRate    float64
	tenantBurst   int
	endpointRate  float64
	endpointBurst int
	lockTTL       time.Duration
}

func NewTxnIngestLimiter(cfg config.Config) (*TxnIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.TxnIngestTenantRate <= 0 || limitCfg.TxnIngestTenantBurst <= 0 {
		return nil, errors.New("txn ingest tenant rate limit must be positive")
	}
	if limitCfg.TxnIngestEndpointRate <= 0 || limitCfg.TxnIngestEndpointBurst <= 0 {
		return nil, errors.New("txn ingest endpoint rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	lockTTL := defaultRedeemLockTTL
	if limitCfg.RedeemLockTTLSeconds > 0 {
		lockTTL = time.Duration(limitCfg.RedeemLockTTLSeconds) * time.Second
	}

	return &TxnIngestLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		locker:        NewLocker(client),
		tenantRate:    limitCfg.TxnIngestTenantRate,
		tenantBurst:   limitCfg.TxnIngestTenantBurst,
		endpointRate:  limitCfg.TxnIngestEndpointRate,
		endpointBurst: limitCfg.TxnIngestEndpointBurst,
		lockTTL:       lockTTL,
	}, nil
}

func (l *TxnIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TxnIngestLimiter) AllowTenant(ctx context.Context, tenantID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTxnIngestTenant, strings.TrimSpace(tenantID)), l.tenantRate, l.tenantBurst)
}

func (l *TxnIngestLimiter) AllowEndpoint(ctx context.Context, tenantID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTxnIngestEndpoint, strings.TrimSpace(tenantID)), l.endpointRate, l.endpointBurst)
}

// TryRedeemLock serializes redemptions for one customer so balance checks and
// the subsequent ledger write do not interleave across instances.
func (l *TxnIngestLimiter) TryRedeemLock(ctx context.Context, tenantID, customerID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyRedeemLock, strings.TrimSpace(tenantID), strings.TrimSpace(customerID))
	return l.locker.TryLock(ctx, key, l.lockTTL)
}

func (l *TxnIngestLimiter) ReleaseRedeemLock(ctx context.Context, tenantID, customerID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyRedeemLock, strings.TrimSpace(tenantID), strings.TrimSpace(customerID))
	return l.locker.Release(ctx, key, token)
}

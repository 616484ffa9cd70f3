package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/pkg/db/pagination"
)

type Service interface {
	// Earn credits points for a purchase. The credited amount is
	// amount x earn rate x campaign multiplier x tier multiplier, rounded per
	// the configured rounding mode. Repeats of the same idempotency key
	// return the original transaction.
	Earn(ctx context.Context, req EarnRequest) (*Response, error)

	// Redeem exchanges points for a reward, holding a per-customer lock so
	// concurrent redemptions cannot double-spend a balance.
	Redeem(ctx context.Context, req RedeemRequest) (*Response, error)

	// Adjust applies a manual correction, positive or negative.
	Adjust(ctx context.Context, req AdjustRequest) (*Response, error)

	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, tenantID string, id string) (*Response, error)
}

type EarnRequest struct {
	TenantID       string         `json:"tenant_id"`
	CustomerID     string         `json:"customer_id"`
	Amount         float64        `json:"amount"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type RedeemRequest struct {
	TenantID       string         `json:"tenant_id"`
	CustomerID     string         `json:"customer_id"`
	RewardID       string         `json:"reward_id"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type AdjustRequest struct {
	TenantID       string         `json:"tenant_id"`
	CustomerID     string         `json:"customer_id"`
	Points         int64          `json:"points"`
	Reason         string         `json:"reason"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type ListRequest struct {
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`

	// Cursor pagination. When PageToken or PageSize is set it wins over
	// Limit/Offset.
	PageToken string `json:"page_token,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

type ListResponse struct {
	Transactions []Response           `json:"transactions"`
	PageInfo     *pagination.PageInfo `json:"page_info,omitempty"`
}

type Response struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	CustomerID     string         `json:"customer_id"`
	TxnType        string         `json:"txn_type"`
	Amount         float64        `json:"amount"`
	Points         int64          `json:"points"`
	RewardID       *string        `json:"reward_id,omitempty"`
	CampaignID     *string        `json:"campaign_id,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidCustomer    = errors.New("invalid_customer")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidPoints      = errors.New("invalid_points")
	ErrInvalidReward      = errors.New("invalid_reward")
	ErrCustomerNotFound   = errors.New("customer_not_found")
	ErrRewardNotFound     = errors.New("reward_not_found")
	ErrRewardArchived     = errors.New("reward_archived")
	ErrOutOfStock         = errors.New("out_of_stock")
	ErrInsufficientPoints = errors.New("insufficient_points")
	ErrRedeemInProgress   = errors.New("redeem_in_progress")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidID          = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

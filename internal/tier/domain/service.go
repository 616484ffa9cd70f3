package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, tenantID string) ([]Response, error)
	GetByID(ctx context.Context, tenantID string, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, tenantID string, id string) error

	// TierFor maps lifetime points to the highest tier whose threshold the
	// customer has crossed. Nil when the tenant has no tiers yet.
	TierFor(ctx context.Context, tenantID snowflake.ID, lifetimePoints int64) (*Tier, error)
}

type CreateRequest struct {
	TenantID   string   `json:"tenant_id"`
	Name       string   `json:"name"`
	MinPoints  int64    `json:"min_points"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

type UpdateRequest struct {
	TenantID   string   `json:"tenant_id"`
	ID         string   `json:"id"`
	Name       *string  `json:"name,omitempty"`
	MinPoints  *int64   `json:"min_points,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

type Response struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	MinPoints  int64     `json:"min_points"`
	Multiplier float64   `json:"multiplier"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidMinPoints  = errors.New("invalid_min_points")
	ErrInvalidMultiplier = errors.New("invalid_multiplier")
	ErrNameTaken         = errors.New("name_taken")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, tenantID string, activeOnly bool) ([]Response, error)
	GetByID(ctx context.Context, tenantID string, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, tenantID string, id string) (*Response, error)
}

type CreateRequest struct {
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CostPoints  int64  `json:"cost_points"`
	Inventory   *int64 `json:"inventory,omitempty"`
}

type UpdateRequest struct {
	TenantID    string  `json:"tenant_id"`
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CostPoints  *int64  `json:"cost_points,omitempty"`
	Inventory   *int64  `json:"inventory,omitempty"`
}

type Response struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CostPoints  int64     `json:"cost_points"`
	Inventory   *int64    `json:"inventory,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidCostPoints = errors.New("invalid_cost_points")
	ErrInvalidInventory  = errors.New("invalid_inventory")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrArchived          = errors.New("reward_archived")
	ErrOutOfStock        = errors.New("out_of_stock")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

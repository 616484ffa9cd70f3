package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, tenantID string, id string) (*Response, error)
	GetByExternalRef(ctx context.Context, tenantID string, externalRef string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	TenantID    string `json:"tenant_id"`
	ExternalRef string `json:"external_ref"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

type UpdateRequest struct {
	TenantID string  `json:"tenant_id"`
	ID       string  `json:"id"`
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
}

type ListRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type ListResponse struct {
	Customers []Response `json:"customers"`
	Total     int64      `json:"total"`
}

type Response struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ExternalRef    string    `json:"external_ref"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PointsBalance  int64     `json:"points_balance"`
	LifetimePoints int64     `json:"lifetime_points"`
	TierID         *string   `json:"tier_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidExternalRef = errors.New("invalid_external_ref")
	ErrExternalRefTaken   = errors.New("external_ref_taken")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInsufficientPoints = errors.New("insufficient_points")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

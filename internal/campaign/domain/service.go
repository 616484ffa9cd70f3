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
	Launch(ctx context.Context, tenantID string, id string) (*Response, error)
	End(ctx context.Context, tenantID string, id string) (*Response, error)

	// BestMultiplierAt returns the highest multiplier among campaigns
	// covering ts, along with the campaign that carries it. Multiplier 1 and
	// nil campaign when none applies.
	BestMultiplierAt(ctx context.Context, tenantID snowflake.ID, ts time.Time) (float64, *Campaign, error)
}

type CreateRequest struct {
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

type UpdateRequest struct {
	TenantID   string     `json:"tenant_id"`
	ID         string     `json:"id"`
	Name       *string    `json:"name,omitempty"`
	Multiplier *float64   `json:"multiplier,omitempty"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

type Response struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidMultiplier = errors.New("invalid_multiplier")
	ErrInvalidWindow     = errors.New("invalid_window")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrAlreadyActive     = errors.New("campaign_already_active")
	ErrAlreadyEnded      = errors.New("campaign_already_ended")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// CacheInvalidator drops cached access decisions when a membership changes.
type CacheInvalidator interface {
	Invalidate(userID, teamID snowflake.ID)
}

type Service interface {
	Create(ctx context.Context, ownerUserID snowflake.ID, req CreateTenantRequest) (*TenantResponse, error)
	GetBySlug(ctx context.Context, slug string) (*TenantResponse, error)
	ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]TenantListResponseItem, error)
	ListMembers(ctx context.Context, tenantID snowflake.ID) ([]MemberResponse, error)
	InviteMembers(ctx context.Context, actorUserID snowflake.ID, tenantID snowflake.ID, invites []InviteRequest) error
	AcceptInvite(ctx context.Context, userID snowflake.ID, rawToken string) (*TenantResponse, error)
	UpdateMemberRoles(ctx context.Context, tenantID snowflake.ID, memberUserID snowflake.ID, roles []string) error
	RemoveMember(ctx context.Context, tenantID snowflake.ID, memberUserID snowflake.ID) error
}

type CreateTenantRequest struct {
	Name string
}

type InviteRequest struct {
	Email string
	Roles []string
}

type TenantResponse struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

type TenantListResponseItem struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	Confirmed bool      `json:"confirmed"`
	JoinedAt  time.Time `json:"joined_at"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrNameTaken       = errors.New("name_taken")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrTenantNotFound  = errors.New("tenant_not_found")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrAlreadyMember   = errors.New("already_member")
	ErrMemberNotFound  = errors.New("member_not_found")
	ErrInviteNotFound  = errors.New("invite_not_found")
	ErrInviteExpired   = errors.New("invite_expired")
	ErrForbidden       = errors.New("forbidden")
	ErrOwnerImmutable  = errors.New("owner_immutable")
)

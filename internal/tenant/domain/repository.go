package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TenantListItem struct {
	ID        snowflake.ID
	Slug      string
	Name      string
	TeamID    snowflake.ID
	Roles     []string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTeam(ctx context.Context, team Team) error
	CreateTenant(ctx context.Context, tenant Tenant) error
	FindTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindTenantByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
	NormalizedNameExists(ctx context.Context, normalizedName string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]TenantListItem, error)

	AddMember(ctx context.Context, member TeamMember) error
	GetMember(ctx context.Context, teamID, userID snowflake.ID) (*TeamMember, error)
	ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]TeamMember, error)
	ListMembersByTeam(ctx context.Context, teamID snowflake.ID) ([]TeamMember, error)
	HasConfirmedMembership(ctx context.Context, userID snowflake.ID) (bool, error)
	UpdateMemberRoles(ctx context.Context, teamID, userID snowflake.ID, roles []string) error
	RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error

	CreateInvites(ctx context.Context, invites []TenantInvite) error
	GetInviteByTokenHash(ctx context.Context, tokenHash string) (*TenantInvite, error)
	MarkInviteAccepted(ctx context.Context, inviteID snowflake.ID, acceptedAt time.Time) error
}

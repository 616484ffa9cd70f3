// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Team is the membership roster backing a tenant.
type Team struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// Tenant represents an isolated customer workspace addressed by a URL slug.
// Every tenant is backed by exactly one team.
type Tenant struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug           string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	TeamID         snowflake.ID `gorm:"column:team_id;not null;index" json:"team_id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	NormalizedName string       `gorm:"column:normalized_name;type:text;not null;uniqueIndex:ux_tenants_normalized_name" json:"normalized_name"`
	OwnerUserID    snowflake.ID `gorm:"column:owner_user_id;not null" json:"owner_user_id"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// TeamMember represents a user's association with a team. Roles is a small
// free-form string list persisted as JSONB.
type TeamMember struct {
	ID        snowflake.ID                 `gorm:"primaryKey" json:"id"`
	TeamID    snowflake.ID                 `gorm:"column:team_id;not null;index;uniqueIndex:ux_team_members_team_user,priority:1" json:"team_id"`
	UserID    snowflake.ID                 `gorm:"column:user_id;not null;index;uniqueIndex:ux_team_members_team_user,priority:2" json:"user_id"`
	Roles     datatypes.JSONSlice[string]  `gorm:"type:jsonb;not null;default:'[]'" json:"roles"`
	Confirmed bool                         `gorm:"not null;default:false" json:"confirmed"`
	JoinedAt  time.Time                    `gorm:"column:joined_at;not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
	CreatedAt time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TeamMember) TableName() string { return "team_members" }

// TenantInvite tracks a pending invite to a tenant's team.
type TenantInvite struct {
	ID         snowflake.ID                `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID                `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	Email      string                      `gorm:"type:text;not null" json:"email"`
	Roles      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"roles"`
	TokenHash  string                      `gorm:"column:token_hash;type:text;not null;uniqueIndex" json:"-"`
	ExpiresAt  time.Time                   `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt *time.Time                  `gorm:"column:accepted_at" json:"accepted_at"`
	CreatedAt  time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (TenantInvite) TableName() string { return "tenant_invites" }

// Package repository backs the access stores with the tenant tables.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/internal/access"
	tenantdomain "github.com/loyalops/perkdesk/internal/tenant/domain"
	"gorm.io/gorm"
)

type tenantStore struct {
	db *gorm.DB
}

func NewTenantStore(db *gorm.DB) access.TenantStore {
	return &tenantStore{db: db}
}

func (s *tenantStore) FindBySlug(ctx context.Context, slug string) (*access.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, access.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &access.Tenant{
		ID:             tenant.ID,
		Slug:           tenant.Slug,
		TeamID:         tenant.TeamID,
		Name:           tenant.Name,
		NormalizedName: tenant.NormalizedName,
		OwnerUserID:    tenant.OwnerUserID,
	}, nil
}

type membershipStore struct {
	db *gorm.DB
}

func NewMembershipStore(db *gorm.DB) access.MembershipStore {
	return &membershipStore{db: db}
}

func (s *membershipStore) ListForUser(ctx context.Context, userID snowflake.ID) ([]access.Membership, error) {
	var members []tenantdomain.TeamMember
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("joined_at ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}

	memberships := make([]access.Membership, 0, len(members))
	for _, member := range members {
		memberships = append(memberships, access.Membership{
			TeamID:    member.TeamID,
			UserID:    member.UserID,
			Roles:     member.Roles,
			Confirmed: member.Confirmed,
			JoinedAt:  member.JoinedAt,
		})
	}
	return memberships, nil
}

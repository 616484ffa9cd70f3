package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/internal/tenant/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTeam(ctx context.Context, team domain.Team) error {
	return r.db.WithContext(ctx).Create(&team).Error
}

func (r *repository) CreateTenant(ctx context.Context, tenant domain.Tenant) error {
	return r.db.WithContext(ctx).Create(&tenant).Error
}

func (r *repository) FindTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) FindTenantByID(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) NormalizedNameExists(ctx context.Context, normalizedName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tenant{}).Where("normalized_name = ?", normalizedName).Count(&count).Error
	return count > 0, err
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tenant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repository) ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TenantListItem, error) {
	var rows []struct {
		ID        snowflake.ID
		Slug      string
		Name      string
		TeamID    snowflake.ID
		Roles     datatypes.JSONSlice[string]
		CreatedAt time.Time
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.id, t.slug, t.name, t.team_id, m.roles, t.created_at
		 FROM tenants t
		 JOIN team_members m ON m.team_id = t.team_id
		 WHERE m.user_id = ? AND m.confirmed
		 ORDER BY t.created_at ASC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.TenantListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.TenantListItem{
			ID:        row.ID,
			Slug:      row.Slug,
			Name:      row.Name,
			TeamID:    row.TeamID,
			Roles:     row.Roles,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.TeamMember) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) GetMember(ctx context.Context, teamID, userID snowflake.ID) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("joined_at ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) ListMembersByTeam(ctx context.Context, teamID snowflake.ID) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("joined_at ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) HasConfirmedMembership(ctx context.Context, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("user_id = ? AND confirmed", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateMemberRoles(ctx context.Context, teamID, userID snowflake.ID, roles []string) error {
	tx := r.db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Updates(map[string]any{
			"roles":      datatypes.NewJSONSlice(roles),
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&domain.TeamMember{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) CreateInvites(ctx context.Context, invites []domain.TenantInvite) error {
	if len(invites) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&invites).Error
}

func (r *repository) GetInviteByTokenHash(ctx context.Context, tokenHash string) (*domain.TenantInvite, error) {
	var invite domain.TenantInvite
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) MarkInviteAccepted(ctx context.Context, inviteID snowflake.ID, acceptedAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.TenantInvite{}).
		Where("id = ? AND accepted_at IS NULL", inviteID).
		Update("accepted_at", acceptedAt)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

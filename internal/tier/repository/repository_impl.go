package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
)

type repo struct{}

func Provide() tierdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *tierdomain.Tier) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tiers (id, tenant_id, name, min_points, multiplier, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.TenantID,
		t.Name,
		t.MinPoints,
		t.Multiplier,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, t *tierdomain.Tier) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tiers
		 SET name = ?, min_points = ?, multiplier = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		t.Name,
		t.MinPoints,
		t.Multiplier,
		t.UpdatedAt,
		t.TenantID,
		t.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM tiers WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, min_points, multiplier, created_at, updated_at
		 FROM tiers WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, name string) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, min_points, multiplier, created_at, updated_at
		 FROM tiers WHERE tenant_id = ? AND name = ?`,
		tenantID,
		name,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]tierdomain.Tier, error) {
	var tiers []tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, min_points, multiplier, created_at, updated_at
		 FROM tiers WHERE tenant_id = ? ORDER BY min_points ASC`,
		tenantID,
	).Scan(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

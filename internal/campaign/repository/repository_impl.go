package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
)

type repo struct{}

func Provide() campaigndomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *campaigndomain.Campaign) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO campaigns (id, tenant_id, name, multiplier, starts_at, ends_at, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.TenantID,
		c.Name,
		c.Multiplier,
		c.StartsAt,
		c.EndsAt,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *campaigndomain.Campaign) error {
	return db.WithContext(ctx).Exec(
		`UPDATE campaigns
		 SET name = ?, multiplier = ?, starts_at = ?, ends_at = ?, status = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		c.Name,
		c.Multiplier,
		c.StartsAt,
		c.EndsAt,
		c.Status,
		c.UpdatedAt,
		c.TenantID,
		c.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*campaigndomain.Campaign, error) {
	var campaign campaigndomain.Campaign
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, multiplier, starts_at, ends_at, status, created_at, updated_at
		 FROM campaigns WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&campaign).Error
	if err != nil {
		return nil, err
	}
	if campaign.ID == 0 {
		return nil, nil
	}
	return &campaign, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]campaigndomain.Campaign, error) {
	var campaigns []campaigndomain.Campaign
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, multiplier, starts_at, ends_at, status, created_at, updated_at
		 FROM campaigns WHERE tenant_id = ? ORDER BY starts_at DESC`,
		tenantID,
	).Scan(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repo) ListActiveAt(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ts time.Time) ([]campaigndomain.Campaign, error) {
	var campaigns []campaigndomain.Campaign
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, multiplier, starts_at, ends_at, status, created_at, updated_at
		 FROM campaigns
		 WHERE tenant_id = ? AND status = ? AND starts_at <= ? AND ends_at > ?`,
		tenantID,
		campaigndomain.StatusActive,
		ts,
		ts,
	).Scan(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

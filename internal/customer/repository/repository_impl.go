package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
)

type repo struct{}

func Provide() customerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *customerdomain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, tenant_id, external_ref, email, name, points_balance, lifetime_points, tier_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.TenantID,
		c.ExternalRef,
		c.Email,
		c.Name,
		c.PointsBalance,
		c.LifetimePoints,
		c.TierID,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *customerdomain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET email = ?, name = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		c.Email,
		c.Name,
		c.UpdatedAt,
		c.TenantID,
		c.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, external_ref, email, name, points_balance, lifetime_points, tier_id, created_at, updated_at
		 FROM customers WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByExternalRef(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, externalRef string) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, external_ref, email, name, points_balance, lifetime_points, tier_id, created_at, updated_at
		 FROM customers WHERE tenant_id = ? AND external_ref = ?`,
		tenantID,
		externalRef,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit, offset int) ([]customerdomain.Customer, error) {
	var customers []customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, external_ref, email, name, points_balance, lifetime_points, tier_id, created_at, updated_at
		 FROM customers WHERE tenant_id = ?
		 ORDER BY created_at ASC
		 LIMIT ? OFFSET ?`,
		tenantID,
		limit,
		offset,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM customers WHERE tenant_id = ?`,
		tenantID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ApplyPoints(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, delta int64) (bool, error) {
	lifetimeDelta := delta
	if lifetimeDelta < 0 {
		lifetimeDelta = 0
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET points_balance = points_balance + ?,
		     lifetime_points = lifetime_points + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND id = ? AND points_balance + ? >= 0`,
		delta,
		lifetimeDelta,
		tenantID,
		id,
		delta,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetTier(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, tierID *snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET tier_id = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`,
		tierID,
		tenantID,
		id,
	).Error
}

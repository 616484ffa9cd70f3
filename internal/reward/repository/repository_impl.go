package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
)

type repo struct{}

func Provide() rewarddomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reward *rewarddomain.Reward) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rewards (id, tenant_id, name, description, cost_points, inventory, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reward.ID,
		reward.TenantID,
		reward.Name,
		reward.Description,
		reward.CostPoints,
		reward.Inventory,
		reward.Active,
		reward.CreatedAt,
		reward.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, reward *rewarddomain.Reward) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rewards
		 SET name = ?, description = ?, cost_points = ?, inventory = ?, active = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		reward.Name,
		reward.Description,
		reward.CostPoints,
		reward.Inventory,
		reward.Active,
		reward.UpdatedAt,
		reward.TenantID,
		reward.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*rewarddomain.Reward, error) {
	var reward rewarddomain.Reward
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, description, cost_points, inventory, active, created_at, updated_at
		 FROM rewards WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&reward).Error
	if err != nil {
		return nil, err
	}
	if reward.ID == 0 {
		return nil, nil
	}
	return &reward, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, activeOnly bool) ([]rewarddomain.Reward, error) {
	query := `SELECT id, tenant_id, name, description, cost_points, inventory, active, created_at, updated_at
		 FROM rewards WHERE tenant_id = ?`
	args := []interface{}{tenantID}
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at ASC`

	var rewards []rewarddomain.Reward
	err := db.WithContext(ctx).Raw(query, args...).Scan(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repo) DecrementInventory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE rewards
		 SET inventory = inventory - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND id = ? AND (inventory IS NULL OR inventory > 0)`,
		tenantID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

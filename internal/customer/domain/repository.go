package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Customer, error)
	FindByExternalRef(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, externalRef string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit, offset int) ([]Customer, error)
	Count(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)

	// ApplyPoints adjusts balances in one statement. delta may be negative;
	// lifetime points only grow. Returns false when the balance would go
	// negative.
	ApplyPoints(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, delta int64) (bool, error)
	SetTier(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, tierID *snowflake.ID) error
}

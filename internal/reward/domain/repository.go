package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reward *Reward) error
	Update(ctx context.Context, db *gorm.DB, reward *Reward) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Reward, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, activeOnly bool) ([]Reward, error)

	// DecrementInventory atomically takes one unit. Returns false when the
	// reward is out of stock; unlimited rewards always succeed.
	DecrementInventory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
}

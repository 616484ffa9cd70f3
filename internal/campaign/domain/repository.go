package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	Update(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Campaign, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Campaign, error)
	ListActiveAt(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ts time.Time) ([]Campaign, error)
}

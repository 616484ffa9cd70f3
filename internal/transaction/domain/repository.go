package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Transaction, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key string) (*Transaction, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit, offset int) ([]Transaction, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, limit, offset int) ([]Transaction, error)

	// ListPage walks the ledger newest-first with a (created_at, id) keyset
	// cursor. A zero customerID spans the whole tenant.
	ListPage(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, before *pagination.Cursor, limit int) ([]Transaction, error)
}

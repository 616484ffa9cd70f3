package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
	"github.com/loyalops/perkdesk/pkg/db/pagination"
)

type repo struct{}

func Provide() txndomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *txndomain.Transaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*txndomain.Transaction, error) {
	var txn txndomain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key string) (*txndomain.Transaction, error) {
	var txn txndomain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit, offset int) ([]txndomain.Transaction, error) {
	var txns []txndomain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) ListPage(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, before *pagination.Cursor, limit int) ([]txndomain.Transaction, error) {
	query := db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if customerID != 0 {
		query = query.Where("customer_id = ?", customerID)
	}

	if before != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, before.CreatedAt)
		if err != nil {
			return nil, err
		}
		cursorID, err := snowflake.ParseString(before.ID)
		if err != nil {
			return nil, err
		}
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			createdAt, createdAt, cursorID,
		)
	}

	var txns []txndomain.Transaction
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, limit, offset int) ([]txndomain.Transaction, error) {
	var txns []txndomain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

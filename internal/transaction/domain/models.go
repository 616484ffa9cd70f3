package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TxnTypeEarn   = "earn"
	TxnTypeRedeem = "redeem"
	TxnTypeAdjust = "adjust"
)

// Transaction is one row in the append-only points ledger. Rows are never
// updated or deleted; corrections are new adjust rows.
type Transaction struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	TenantID       snowflake.ID      `json:"tenant_id" gorm:"column:tenant_id;not null;index"`
	CustomerID     snowflake.ID      `json:"customer_id" gorm:"not null;index"`
	TxnType        string            `json:"txn_type" gorm:"type:text;not null"`
	Amount         float64           `json:"amount" gorm:"type:numeric(18,4);not null;default:0"`
	Points         int64             `json:"points" gorm:"not null;default:0"`
	RewardID       *snowflake.ID     `json:"reward_id,omitempty"`
	CampaignID     *snowflake.ID     `json:"campaign_id,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Transaction) TableName() string { return "transactions" }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reward is an item customers redeem points for. Inventory is nil for
// unlimited rewards.
type Reward struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID    snowflake.ID `json:"tenant_id" gorm:"column:tenant_id;not null;index"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text;not null;default:''"`
	CostPoints  int64        `json:"cost_points" gorm:"not null"`
	Inventory   *int64       `json:"inventory,omitempty"`
	Active      bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Reward) TableName() string { return "rewards" }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is a named loyalty level a customer reaches by lifetime points.
type Tier struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID `json:"tenant_id" gorm:"column:tenant_id;not null;index:ux_tiers_tenant_name,priority:1"`
	Name       string       `json:"name" gorm:"type:text;not null;index:ux_tiers_tenant_name,priority:2"`
	MinPoints  int64        `json:"min_points" gorm:"not null;default:0"`
	Multiplier float64      `json:"multiplier" gorm:"type:numeric(8,4);not null;default:1"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tier) TableName() string { return "tiers" }

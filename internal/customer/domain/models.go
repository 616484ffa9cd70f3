package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is an end customer enrolled in a tenant's loyalty program.
// ExternalRef is the merchant's own identifier and is unique per tenant.
type Customer struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	TenantID       snowflake.ID  `json:"tenant_id" gorm:"column:tenant_id;not null;index:ux_customers_tenant_ref,priority:1"`
	ExternalRef    string        `json:"external_ref" gorm:"type:text;not null;index:ux_customers_tenant_ref,priority:2"`
	Email          string        `json:"email" gorm:"type:text;not null;default:''"`
	Name           string        `json:"name" gorm:"type:text;not null;default:''"`
	PointsBalance  int64         `json:"points_balance" gorm:"not null;default:0"`
	LifetimePoints int64         `json:"lifetime_points" gorm:"not null;default:0"`
	TierID         *snowflake.ID `json:"tier_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }

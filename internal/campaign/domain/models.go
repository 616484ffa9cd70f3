package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Campaign lifecycle. A campaign starts as a draft, boosts earnings only
// while active, and stays ended once ended.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Campaign boosts earned points by a multiplier inside its window. Only an
// active campaign whose window covers the transaction time applies.
type Campaign struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID `json:"tenant_id" gorm:"column:tenant_id;not null;index"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	Multiplier float64      `json:"multiplier" gorm:"type:numeric(8,4);not null;default:1"`
	StartsAt   time.Time    `json:"starts_at" gorm:"not null"`
	EndsAt     time.Time    `json:"ends_at" gorm:"not null"`
	Status     string       `json:"status" gorm:"type:text;not null;default:'draft'"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Campaign) TableName() string { return "campaigns" }

// AppliesAt reports whether the campaign boosts a transaction at ts.
func (c Campaign) AppliesAt(ts time.Time) bool {
	return c.Status == StatusActive && !ts.Before(c.StartsAt) && ts.Before(c.EndsAt)
}

package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is the user-profile record keyed by the auth provider uid.
type Profile struct {
	UserID    string            `json:"user_id" gorm:"column:user_id;primaryKey"`
	Email     string            `json:"email" gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Profile) TableName() string { return "user_profiles" }

// Purchase links one commerce order to a profile. The unique index on
// (user_id, order_id) is what makes retried linkage idempotent.
type Purchase struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"column:user_id;type:text;not null;uniqueIndex:ux_profile_purchases_user_order,priority:1"`
	ProductID string     `json:"product_id" gorm:"column:product_id;type:text;not null"`
	OrderID   string     `json:"order_id" gorm:"column:order_id;type:text;not null;uniqueIndex:ux_profile_purchases_user_order,priority:2"`
	OrderedAt *time.Time `json:"ordered_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Purchase) TableName() string { return "profile_purchases" }

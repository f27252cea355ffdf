package domain

import "time"

// RegistrationToken is a single-use credential minted for one commerce
// order. The unique index on order_id makes issuance idempotent; the
// used flag is flipped exactly once by a conditional update.
type RegistrationToken struct {
	ID        int64      `json:"-" gorm:"primaryKey"`
	Token     string     `json:"token" gorm:"type:text;not null;uniqueIndex:ux_registration_tokens_token"`
	Email     string     `json:"email" gorm:"type:text;not null"`
	ProductID string     `json:"product_id" gorm:"column:product_id;type:text;not null"`
	OrderID   string     `json:"order_id" gorm:"column:order_id;type:text;not null;uniqueIndex:ux_registration_tokens_order_id"`
	OrderedAt *time.Time `json:"ordered_at,omitempty"`
	Used      bool       `json:"used" gorm:"not null;default:false"`
	UsedBy    *string    `json:"used_by,omitempty" gorm:"column:used_by;type:text"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RegistrationToken) TableName() string { return "registration_tokens" }

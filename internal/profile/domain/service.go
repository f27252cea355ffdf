package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Service merges purchase linkage into user profiles non-destructively:
// linking never erases fields an existing profile already has, and
// linking the same order twice is a no-op.
type Service interface {
	LinkPurchase(ctx context.Context, req LinkPurchaseRequest) error
	// LinkPurchaseTx runs the linkage on the caller's transaction so a
	// caller can commit it together with its own writes.
	LinkPurchaseTx(ctx context.Context, tx *gorm.DB, req LinkPurchaseRequest) error
	ListPurchases(ctx context.Context, userID string) ([]Purchase, error)
}

type LinkPurchaseRequest struct {
	UserID    string
	Email     string
	ProductID string
	OrderID   string
	OrderedAt *time.Time
}

var ErrInvalidRequest = errors.New("invalid_profile_request")

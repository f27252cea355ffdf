package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, token *RegistrationToken) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*RegistrationToken, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*RegistrationToken, error)
	// Consume flips used from false to true in a single conditional
	// update. It reports whether this call won the flip; losing means
	// the token was unknown or already consumed.
	Consume(ctx context.Context, db *gorm.DB, token, userID string, at time.Time) (bool, error)
}

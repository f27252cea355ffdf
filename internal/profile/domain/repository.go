package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Profile, error)
	Create(ctx context.Context, db *gorm.DB, profile *Profile) error
	TouchEmail(ctx context.Context, db *gorm.DB, userID, email string) error
	AddPurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindPurchases(ctx context.Context, db *gorm.DB, userID string) ([]Purchase, error)
}

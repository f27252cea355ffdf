package repository

import (
	"context"
	"strings"

	"github.com/learnsprout/sproutlink/internal/profile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, email, metadata, created_at, updated_at
		 FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.UserID) == "" {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_profiles (user_id, email, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		profile.UserID,
		profile.Email,
		profile.Metadata,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

// TouchEmail fills in an email only when the stored one is empty, so a
// linkage never clobbers what the profile already carries.
func (r *repo) TouchEmail(ctx context.Context, db *gorm.DB, userID, email string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE user_profiles
		 SET email = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND (email IS NULL OR email = '')`,
		email,
		userID,
	).Error
}

func (r *repo) AddPurchase(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO profile_purchases (id, user_id, product_id, order_id, ordered_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.UserID,
		purchase.ProductID,
		purchase.OrderID,
		purchase.OrderedAt,
		purchase.CreatedAt,
	).Error
}

func (r *repo) FindPurchases(ctx context.Context, db *gorm.DB, userID string) ([]domain.Purchase, error) {
	var items []domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, product_id, order_id, ordered_at, created_at
		 FROM profile_purchases WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

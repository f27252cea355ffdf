package repository

import (
	"context"
	"strings"
	"time"

	"github.com/learnsprout/sproutlink/internal/token/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, token *domain.RegistrationToken) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO registration_tokens (id, token, email, product_id, order_id, ordered_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.Token,
		token.Email,
		token.ProductID,
		token.OrderID,
		token.OrderedAt,
		token.Used,
		token.CreatedAt,
	).Error
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.RegistrationToken, error) {
	var t domain.RegistrationToken
	err := db.WithContext(ctx).Raw(
		`SELECT id, token, email, product_id, order_id, ordered_at, used, used_by, used_at, created_at
		 FROM registration_tokens WHERE token = ?`,
		token,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Token) == "" {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.RegistrationToken, error) {
	var t domain.RegistrationToken
	err := db.WithContext(ctx).Raw(
		`SELECT id, token, email, product_id, order_id, ordered_at, used, used_by, used_at, created_at
		 FROM registration_tokens WHERE order_id = ?`,
		orderID,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Token) == "" {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) Consume(ctx context.Context, db *gorm.DB, token, userID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE registration_tokens
		 SET used = ?, used_by = ?, used_at = ?
		 WHERE token = ? AND used = ?`,
		true,
		userID,
		at,
		token,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

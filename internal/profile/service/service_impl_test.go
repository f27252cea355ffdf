package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/learnsprout/sproutlink/internal/clock"
	"github.com/learnsprout/sproutlink/internal/profile/domain"
	"github.com/learnsprout/sproutlink/internal/profile/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupProfileService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Profile{}, &domain.Purchase{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewSystemClock(),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestLinkPurchaseCreatesProfile(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()

	orderedAt := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	err := svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{
		UserID:    "user-1",
		Email:     "buyer@example.com",
		ProductID: "prod-1",
		OrderID:   "order-1",
		OrderedAt: &orderedAt,
	})
	require.NoError(t, err)

	var p domain.Profile
	require.NoError(t, db.First(&p, "user_id = ?", "user-1").Error)
	assert.Equal(t, "buyer@example.com", p.Email)

	purchases, err := svc.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "order-1", purchases[0].OrderID)
}

func TestLinkPurchaseSameOrderTwiceIsNoOp(t *testing.T) {
	svc, _ := setupProfileService(t)
	ctx := context.Background()

	req := domain.LinkPurchaseRequest{
		UserID:    "user-1",
		Email:     "buyer@example.com",
		ProductID: "prod-1",
		OrderID:   "order-1",
	}
	require.NoError(t, svc.LinkPurchase(ctx, req))
	require.NoError(t, svc.LinkPurchase(ctx, req))

	purchases, err := svc.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestLinkPurchaseDoesNotClobberExistingEmail(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{
		UserID:    "user-1",
		Email:     "original@example.com",
		ProductID: "prod-1",
		OrderID:   "order-1",
	}))
	require.NoError(t, svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{
		UserID:    "user-1",
		Email:     "other@example.com",
		ProductID: "prod-2",
		OrderID:   "order-2",
	}))

	var p domain.Profile
	require.NoError(t, db.First(&p, "user_id = ?", "user-1").Error)
	assert.Equal(t, "original@example.com", p.Email)

	purchases, err := svc.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, purchases, 2)
}

func TestLinkPurchaseFillsEmptyEmail(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()

	require.NoError(t, svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{
		UserID:    "user-1",
		ProductID: "prod-1",
		OrderID:   "order-1",
	}))
	require.NoError(t, svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{
		UserID:    "user-1",
		Email:     "late@example.com",
		ProductID: "prod-2",
		OrderID:   "order-2",
	}))

	var p domain.Profile
	require.NoError(t, db.First(&p, "user_id = ?", "user-1").Error)
	assert.Equal(t, "late@example.com", p.Email)
}

func TestLinkPurchaseValidation(t *testing.T) {
	svc, _ := setupProfileService(t)
	ctx := context.Background()

	err := svc.LinkPurchase(ctx, domain.LinkPurchaseRequest{ProductID: "p", OrderID: "o"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.ListPurchases(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

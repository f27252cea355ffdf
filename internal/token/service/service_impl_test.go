package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/learnsprout/sproutlink/internal/clock"
	profiledomain "github.com/learnsprout/sproutlink/internal/profile/domain"
	profilerepository "github.com/learnsprout/sproutlink/internal/profile/repository"
	profileservice "github.com/learnsprout/sproutlink/internal/profile/service"
	"github.com/learnsprout/sproutlink/internal/token/domain"
	"github.com/learnsprout/sproutlink/internal/token/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTokenService(t *testing.T) (domain.Service, profiledomain.Service, *gorm.DB) {
	return setupTokenServiceWithClock(t, clock.NewSystemClock())
}

func setupTokenServiceWithClock(t *testing.T, clk clock.Clock) (domain.Service, profiledomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	require.NoError(t, db.AutoMigrate(
		&domain.RegistrationToken{},
		&profiledomain.Profile{},
		&profiledomain.Purchase{},
	))

	node := mustNode(t)

	profiles := profileservice.New(profileservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  profilerepository.Provide(),
	})

	tokens := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Profiles: profiles,
	})

	return tokens, profiles, db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestIssueMintsSingleTokenPerOrder(t *testing.T) {
	tokens, _, _ := setupTokenService(t)
	ctx := context.Background()

	orderedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1001",
		OrderedAt: &orderedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotEmpty(t, first.Token)
	assert.False(t, first.Used)

	second, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1001",
	})
	require.ErrorIs(t, err, domain.ErrOrderAlreadyIssued)
	require.NotNil(t, second)
	assert.Equal(t, first.Token, second.Token)
}

func TestIssueRejectsIncompleteOrders(t *testing.T) {
	tokens, _, _ := setupTokenService(t)
	ctx := context.Background()

	_, err := tokens.Issue(ctx, domain.IssueRequest{ProductID: "p", OrderID: "o"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = tokens.Issue(ctx, domain.IssueRequest{Email: "a@b.c", OrderID: "o"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = tokens.Issue(ctx, domain.IssueRequest{Email: "a@b.c", ProductID: "p"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestValidateDoesNotConsume(t *testing.T) {
	tokens, _, _ := setupTokenService(t)
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1002",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := tokens.Validate(ctx, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "buyer@example.com", resp.Email)
		assert.Equal(t, "prod-42", resp.ProductID)
		assert.Equal(t, "order-1002", resp.OrderID)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	tokens, _, _ := setupTokenService(t)

	_, err := tokens.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestCompleteConsumesAndLinksPurchase(t *testing.T) {
	tokens, profiles, _ := setupTokenService(t)
	ctx := context.Background()

	orderedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1003",
		OrderedAt: &orderedAt,
	})
	require.NoError(t, err)

	err = tokens.Complete(ctx, domain.CompleteRequest{
		Token: issued.Token,
		UID:   "user-abc",
		Email: "buyer@example.com",
	})
	require.NoError(t, err)

	_, err = tokens.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)

	purchases, err := profiles.ListPurchases(ctx, "user-abc")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "prod-42", purchases[0].ProductID)
	assert.Equal(t, "order-1003", purchases[0].OrderID)
}

func TestCompleteTwiceFails(t *testing.T) {
	tokens, _, _ := setupTokenService(t)
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1004",
	})
	require.NoError(t, err)

	req := domain.CompleteRequest{Token: issued.Token, UID: "user-abc"}
	require.NoError(t, tokens.Complete(ctx, req))
	assert.ErrorIs(t, tokens.Complete(ctx, req), domain.ErrTokenAlreadyUsed)

	req.UID = "user-other"
	assert.ErrorIs(t, tokens.Complete(ctx, req), domain.ErrTokenAlreadyUsed)
}

func TestCompleteUnknownToken(t *testing.T) {
	tokens, _, _ := setupTokenService(t)

	err := tokens.Complete(context.Background(), domain.CompleteRequest{
		Token: "no-such-token",
		UID:   "user-abc",
	})
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestCompleteAllowsDifferentEmail(t *testing.T) {
	tokens, _, _ := setupTokenService(t)
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1005",
	})
	require.NoError(t, err)

	err = tokens.Complete(ctx, domain.CompleteRequest{
		Token: issued.Token,
		UID:   "user-abc",
		Email: "someone-else@example.com",
	})
	assert.NoError(t, err)
}

// flakyProfiles injects a linkage failure into an otherwise real
// profile service.
type flakyProfiles struct {
	profiledomain.Service
	fail error
}

func (f *flakyProfiles) LinkPurchaseTx(ctx context.Context, tx *gorm.DB, req profiledomain.LinkPurchaseRequest) error {
	if f.fail != nil {
		return f.fail
	}
	return f.Service.LinkPurchaseTx(ctx, tx, req)
}

func TestCompleteLinkageFailureKeepsTokenRedeemable(t *testing.T) {
	_, profiles, db := setupTokenService(t)
	flaky := &flakyProfiles{Service: profiles, fail: errors.New("profile store offline")}
	tokens := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    mustNode(t),
		Clock:    clock.NewSystemClock(),
		Repo:     repository.Provide(),
		Profiles: flaky,
	})
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1008",
	})
	require.NoError(t, err)

	err = tokens.Complete(ctx, domain.CompleteRequest{Token: issued.Token, UID: "user-abc"})
	require.ErrorContains(t, err, "profile store offline")

	// The failed linkage rolled the consume back, so a retry succeeds.
	_, err = tokens.Validate(ctx, issued.Token)
	require.NoError(t, err)

	flaky.fail = nil
	require.NoError(t, tokens.Complete(ctx, domain.CompleteRequest{Token: issued.Token, UID: "user-abc"}))

	purchases, err := profiles.ListPurchases(ctx, "user-abc")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "order-1008", purchases[0].OrderID)
}

func TestCompleteRecordsConsumptionTime(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(start)
	tokens, _, db := setupTokenServiceWithClock(t, clk)
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1007",
	})
	require.NoError(t, err)
	assert.Equal(t, start, issued.CreatedAt)

	clk.Advance(30 * time.Minute)
	require.NoError(t, tokens.Complete(ctx, domain.CompleteRequest{
		Token: issued.Token,
		UID:   "user-abc",
	}))

	var row domain.RegistrationToken
	require.NoError(t, db.First(&row, "token = ?", issued.Token).Error)
	require.NotNil(t, row.UsedAt)
	assert.Equal(t, start.Add(30*time.Minute), row.UsedAt.UTC())
	require.NotNil(t, row.UsedBy)
	assert.Equal(t, "user-abc", *row.UsedBy)
}

func TestConcurrentCompleteExactlyOnce(t *testing.T) {
	tokens, profiles, _ := setupTokenService(t)
	ctx := context.Background()

	issued, err := tokens.Issue(ctx, domain.IssueRequest{
		Email:     "buyer@example.com",
		ProductID: "prod-42",
		OrderID:   "order-1006",
	})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tokens.Complete(ctx, domain.CompleteRequest{
				Token: issued.Token,
				UID:   fmt.Sprintf("user-%d", i),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, domain.ErrTokenAlreadyUsed), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	// Only the winner's profile carries the purchase.
	linked := 0
	for i := 0; i < callers; i++ {
		purchases, err := profiles.ListPurchases(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		linked += len(purchases)
	}
	assert.Equal(t, 1, linked)
}

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
	"github.com/learnsprout/sproutlink/internal/commerce"
	"github.com/learnsprout/sproutlink/internal/config"
	"github.com/learnsprout/sproutlink/internal/ingest/domain"
	profiledomain "github.com/learnsprout/sproutlink/internal/profile/domain"
	profilerepository "github.com/learnsprout/sproutlink/internal/profile/repository"
	profileservice "github.com/learnsprout/sproutlink/internal/profile/service"
	tokendomain "github.com/learnsprout/sproutlink/internal/token/domain"
	tokenrepository "github.com/learnsprout/sproutlink/internal/token/repository"
	tokenservice "github.com/learnsprout/sproutlink/internal/token/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type commerceStub struct {
	orders []commerce.Order
	err    error
}

func (c *commerceStub) ListOrders(ctx context.Context) ([]commerce.Order, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.orders, nil
}

type emailRecorder struct {
	mu     sync.Mutex
	sent   [][]string
	bodies []string
	failTo map[string]error
}

func (e *emailRecorder) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, addr := range to {
		if err, ok := e.failTo[addr]; ok {
			return err
		}
	}
	e.sent = append(e.sent, to)
	e.bodies = append(e.bodies, htmlBody)
	return nil
}

func (e *emailRecorder) Sent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sent)
}

func setupIngest(t *testing.T, client commerce.Client, provider *emailRecorder) (domain.Service, tokendomain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&tokendomain.RegistrationToken{},
		&profiledomain.Profile{},
		&profiledomain.Purchase{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewSystemClock()

	profiles := profileservice.New(profileservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  profilerepository.Provide(),
	})
	tokens := tokenservice.New(tokenservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     tokenrepository.Provide(),
		Profiles: profiles,
	})

	svc := New(Params{
		Cfg:      config.Config{PublicBaseURL: "https://app.learnsprout.test"},
		Log:      zap.NewNop(),
		Commerce: client,
		Tokens:   tokens,
		Email:    provider,
	})
	return svc, tokens
}

func order(id, email string, items ...commerce.LineItem) commerce.Order {
	createdOn := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return commerce.Order{
		ID:            id,
		OrderNumber:   "N" + id,
		CustomerEmail: email,
		CreatedOn:     &createdOn,
		LineItems:     items,
	}
}

func TestSyncOrdersMintsAndEmails(t *testing.T) {
	client := &commerceStub{orders: []commerce.Order{
		order("o-1", "a@example.com", commerce.LineItem{ProductID: "p-1", Quantity: 1}),
		order("o-2", "b@example.com", commerce.LineItem{ProductID: "p-2", Quantity: 1}),
	}}
	recorder := &emailRecorder{}
	svc, tokens := setupIngest(t, client, recorder)

	report, err := svc.SyncOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, recorder.Sent())

	// The email carries a working single-use link.
	require.NotEmpty(t, recorder.bodies)
	assert.Contains(t, recorder.bodies[0], "https://app.learnsprout.test/register?token=")

	_, err = tokens.Issue(context.Background(), tokendomain.IssueRequest{
		Email:     "a@example.com",
		ProductID: "p-1",
		OrderID:   "o-1",
	})
	assert.ErrorIs(t, err, tokendomain.ErrOrderAlreadyIssued)
}

func TestSyncOrdersIsIdempotent(t *testing.T) {
	client := &commerceStub{orders: []commerce.Order{
		order("o-1", "a@example.com", commerce.LineItem{ProductID: "p-1", Quantity: 1}),
	}}
	recorder := &emailRecorder{}
	svc, _ := setupIngest(t, client, recorder)
	ctx := context.Background()

	first, err := svc.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := svc.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, recorder.Sent(), "no duplicate email on re-sync")
}

func TestSyncOrdersSkipsUnusableOrders(t *testing.T) {
	client := &commerceStub{orders: []commerce.Order{
		order("", "a@example.com", commerce.LineItem{ProductID: "p-1"}),
		order("o-2", "", commerce.LineItem{ProductID: "p-1"}),
		order("o-3", "c@example.com"),
		order("o-4", "d@example.com", commerce.LineItem{ProductID: "   "}),
		order("o-5", "e@example.com", commerce.LineItem{ProductID: "p-5"}),
	}}
	recorder := &emailRecorder{}
	svc, _ := setupIngest(t, client, recorder)

	report, err := svc.SyncOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 4, report.Skipped)
	assert.Empty(t, report.Failed, "unusable orders never count as failures")
	assert.Equal(t, 1, recorder.Sent())
}

func TestSyncOrdersEmailFailureKeepsToken(t *testing.T) {
	client := &commerceStub{orders: []commerce.Order{
		order("o-1", "broken@example.com", commerce.LineItem{ProductID: "p-1"}),
		order("o-2", "ok@example.com", commerce.LineItem{ProductID: "p-2"}),
	}}
	recorder := &emailRecorder{failTo: map[string]error{
		"broken@example.com": errors.New("smtp unavailable"),
	}}
	svc, tokens := setupIngest(t, client, recorder)
	ctx := context.Background()

	report, err := svc.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "o-1", report.Failed[0].OrderID)
	assert.Equal(t, domain.FailEmailSend, report.Failed[0].Reason)

	// Token for the failed order exists and is still redeemable.
	_, err = tokens.Issue(ctx, tokendomain.IssueRequest{
		Email:     "broken@example.com",
		ProductID: "p-1",
		OrderID:   "o-1",
	})
	assert.ErrorIs(t, err, tokendomain.ErrOrderAlreadyIssued)
}

func TestSyncOrdersUpstreamFailureAborts(t *testing.T) {
	client := &commerceStub{err: fmt.Errorf("%w: squarespace 503", commerce.ErrUpstream)}
	svc, _ := setupIngest(t, client, &emailRecorder{})

	_, err := svc.SyncOrders(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, commerce.ErrUpstream)
}

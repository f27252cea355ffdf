package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/learnsprout/sproutlink/internal/commerce"
	"github.com/learnsprout/sproutlink/internal/config"
	"github.com/learnsprout/sproutlink/internal/ingest/domain"
	"github.com/learnsprout/sproutlink/internal/observability/metrics"
	"github.com/learnsprout/sproutlink/internal/providers/email"
	tokendomain "github.com/learnsprout/sproutlink/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Commerce commerce.Client
	Tokens   tokendomain.Service
	Email    email.Provider
	Metrics  *metrics.SyncMetrics `optional:"true"`
}

type Service struct {
	cfg      config.Config
	log      *zap.Logger
	commerce commerce.Client
	tokens   tokendomain.Service
	email    email.Provider
	metrics  *metrics.SyncMetrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Cfg,
		log:      p.Log.Named("ingest.service"),
		commerce: p.Commerce,
		tokens:   p.Tokens,
		email:    p.Email,
		metrics:  p.Metrics,
	}
}

func (s *Service) SyncOrders(ctx context.Context) (*domain.Report, error) {
	orders, err := s.commerce.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{Failed: []domain.OrderFailure{}}
	for _, order := range orders {
		s.syncOrder(ctx, order, report)
	}

	s.log.Info("order sync pass finished",
		zap.Int("orders", len(orders)),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (s *Service) syncOrder(ctx context.Context, order commerce.Order, report *domain.Report) {
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		s.skip(report, orderID, domain.SkipMissingOrderID)
		return
	}
	buyerEmail := strings.TrimSpace(order.CustomerEmail)
	if buyerEmail == "" {
		s.skip(report, orderID, domain.SkipMissingEmail)
		return
	}
	if len(order.LineItems) == 0 {
		s.skip(report, orderID, domain.SkipNoLineItems)
		return
	}
	productID := strings.TrimSpace(order.LineItems[0].ProductID)
	if productID == "" {
		s.skip(report, orderID, domain.SkipMissingProductID)
		return
	}

	token, err := s.tokens.Issue(ctx, tokendomain.IssueRequest{
		Email:     buyerEmail,
		ProductID: productID,
		OrderID:   orderID,
		OrderedAt: order.CreatedOn,
	})
	if err != nil {
		// Covers both a prior run and a concurrent one losing the insert.
		if errors.Is(err, tokendomain.ErrOrderAlreadyIssued) {
			s.skip(report, orderID, domain.SkipTokenExists)
			return
		}
		s.log.Error("token issue failed", zap.String("order_id", orderID), zap.Error(err))
		report.Failed = append(report.Failed, domain.OrderFailure{
			OrderID: orderID,
			Reason:  domain.FailTokenIssue,
		})
		return
	}
	s.metrics.IncTokensIssued(1)

	if err := s.sendRegistrationEmail(ctx, buyerEmail, token.Token); err != nil {
		// The token stays minted. The next run skips this order, so the
		// failure is reported here for ops to resend.
		s.metrics.IncEmailFailure()
		s.log.Error("registration email failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		report.Failed = append(report.Failed, domain.OrderFailure{
			OrderID: orderID,
			Reason:  domain.FailEmailSend,
		})
		return
	}

	report.Processed++
}

func (s *Service) skip(report *domain.Report, orderID, reason string) {
	report.Skipped++
	s.metrics.IncOrdersSkipped(reason)
	s.log.Debug("order skipped", zap.String("order_id", orderID), zap.String("reason", reason))
}

func (s *Service) sendRegistrationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/register?token=%s",
		strings.TrimRight(s.cfg.PublicBaseURL, "/"),
		url.QueryEscape(token),
	)
	body, err := email.RenderRegistration(link)
	if err != nil {
		return err
	}
	return s.email.Send(ctx, []string{to}, email.RegistrationSubject, body)
}

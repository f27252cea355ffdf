package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/learnsprout/sproutlink/internal/clock"
	profiledomain "github.com/learnsprout/sproutlink/internal/profile/domain"
	"github.com/learnsprout/sproutlink/internal/token/domain"
	"github.com/learnsprout/sproutlink/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Profiles profiledomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	profiles profiledomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("token.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		profiles: p.Profiles,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.RegistrationToken, error) {
	email := strings.TrimSpace(req.Email)
	orderID := strings.TrimSpace(req.OrderID)
	productID := strings.TrimSpace(req.ProductID)
	if email == "" || orderID == "" || productID == "" {
		return nil, domain.ErrInvalidRequest
	}

	existing, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, domain.ErrOrderAlreadyIssued
	}

	token := &domain.RegistrationToken{
		ID:        s.genID.Generate().Int64(),
		Token:     uuid.NewString(),
		Email:     email,
		ProductID: productID,
		OrderID:   orderID,
		OrderedAt: req.OrderedAt,
		Used:      false,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Create(ctx, s.db, token); err != nil {
		// The unique index on order_id closes the pre-check race: the
		// concurrent caller that lost the insert ends up here.
		if db.IsDuplicateKeyErr(err) {
			winner, ferr := s.repo.FindByOrderID(ctx, s.db, orderID)
			if ferr != nil {
				return nil, ferr
			}
			return winner, domain.ErrOrderAlreadyIssued
		}
		return nil, err
	}

	s.log.Info("registration token issued",
		zap.String("order_id", orderID),
		zap.String("product_id", productID),
	)
	return token, nil
}

func (s *Service) Validate(ctx context.Context, token string) (*domain.ValidateResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidRequest
	}

	t, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTokenNotFound
	}
	if t.Used {
		return nil, domain.ErrTokenAlreadyUsed
	}

	return &domain.ValidateResponse{
		Email:     t.Email,
		ProductID: t.ProductID,
		OrderID:   t.OrderID,
	}, nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) error {
	token := strings.TrimSpace(req.Token)
	uid := strings.TrimSpace(req.UID)
	if token == "" || uid == "" {
		return domain.ErrInvalidRequest
	}

	t, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrTokenNotFound
	}
	if t.Used {
		return domain.ErrTokenAlreadyUsed
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.EqualFold(email, t.Email) {
		s.log.Warn("registration completed with a different email than the order",
			zap.String("order_id", t.OrderID),
			zap.String("order_email", t.Email),
			zap.String("registered_email", email),
		)
	}

	// Consume and linkage commit together: a linkage failure rolls the
	// consume back, so the token stays redeemable for a retry.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.repo.Consume(ctx, tx, token, uid, s.clock.Now())
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrTokenAlreadyUsed
		}
		return s.profiles.LinkPurchaseTx(ctx, tx, profiledomain.LinkPurchaseRequest{
			UserID:    uid,
			Email:     t.Email,
			ProductID: t.ProductID,
			OrderID:   t.OrderID,
			OrderedAt: t.OrderedAt,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrTokenAlreadyUsed) {
			return err
		}
		s.log.Error("completing registration failed",
			zap.String("order_id", t.OrderID),
			zap.String("user_id", uid),
			zap.Error(err),
		)
		return err
	}

	s.log.Info("registration completed",
		zap.String("order_id", t.OrderID),
		zap.String("user_id", uid),
	)
	return nil
}

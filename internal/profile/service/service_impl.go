package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/learnsprout/sproutlink/internal/clock"
	"github.com/learnsprout/sproutlink/internal/profile/domain"
	"github.com/learnsprout/sproutlink/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) LinkPurchase(ctx context.Context, req domain.LinkPurchaseRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.LinkPurchaseTx(ctx, tx, req)
	})
}

func (s *Service) LinkPurchaseTx(ctx context.Context, tx *gorm.DB, req domain.LinkPurchaseRequest) error {
	userID := strings.TrimSpace(req.UserID)
	orderID := strings.TrimSpace(req.OrderID)
	productID := strings.TrimSpace(req.ProductID)
	if userID == "" || orderID == "" || productID == "" {
		return domain.ErrInvalidRequest
	}

	now := s.clock.Now()

	existing, err := s.repo.FindByUserID(ctx, tx, userID)
	if err != nil {
		return err
	}

	if existing == nil {
		err = s.repo.Create(ctx, tx, &domain.Profile{
			UserID:    userID,
			Email:     strings.TrimSpace(req.Email),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil && !db.IsDuplicateKeyErr(err) {
			return err
		}
	} else if strings.TrimSpace(existing.Email) == "" && strings.TrimSpace(req.Email) != "" {
		if err := s.repo.TouchEmail(ctx, tx, userID, strings.TrimSpace(req.Email)); err != nil {
			return err
		}
	}

	err = s.repo.AddPurchase(ctx, tx, &domain.Purchase{
		ID:        s.genID.Generate().Int64(),
		UserID:    userID,
		ProductID: productID,
		OrderID:   orderID,
		OrderedAt: req.OrderedAt,
		CreatedAt: now,
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("purchase already linked",
				zap.String("user_id", userID),
				zap.String("order_id", orderID),
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.FindPurchases(ctx, s.db, userID)
}

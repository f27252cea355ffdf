package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Issue mints a token for a new order. Exactly one token exists per
	// order id; issuing for an already-seen order fails with
	// ErrOrderAlreadyIssued.
	Issue(ctx context.Context, req IssueRequest) (*RegistrationToken, error)
	// Validate is read-only: it never mutates the token.
	Validate(ctx context.Context, token string) (*ValidateResponse, error)
	// Complete consumes the token and links the purchase to the new
	// account. Safe to retry: a second call fails with ErrTokenAlreadyUsed
	// and never double-links.
	Complete(ctx context.Context, req CompleteRequest) error
}

type IssueRequest struct {
	Email     string
	ProductID string
	OrderID   string
	OrderedAt *time.Time
}

type ValidateResponse struct {
	Email     string `json:"email"`
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id"`
}

type CompleteRequest struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
	Email string `json:"email"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_token_request")
	ErrTokenNotFound      = errors.New("token_not_found")
	ErrTokenAlreadyUsed   = errors.New("token_already_used")
	ErrOrderAlreadyIssued = errors.New("order_already_issued")
)

package domain

import "context"

// Service drives a sync pass over the commerce API: one registration
// token per paid order, one email per minted token.
type Service interface {
	SyncOrders(ctx context.Context) (*Report, error)
}

// Report summarizes a single sync pass. A failed order still holds its
// token; only the email needs another attempt.
type Report struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    []OrderFailure `json:"failed"`
}

type OrderFailure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

const (
	SkipMissingEmail     = "missing_email"
	SkipMissingOrderID   = "missing_order_id"
	SkipMissingProductID = "missing_product_id"
	SkipNoLineItems      = "no_line_items"
	SkipTokenExists      = "token_exists"

	FailTokenIssue = "token_issue_failed"
	FailEmailSend  = "email_send_failed"
)

package commerce

import (
	"context"
	"errors"
	"time"
)

// Order is one purchase returned by the upstream commerce API.
type Order struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"orderNumber"`
	CustomerEmail string     `json:"customerEmail"`
	CreatedOn     *time.Time `json:"createdOn"`
	LineItems     []LineItem `json:"lineItems"`
	Testmode      bool       `json:"testmode"`
}

// LineItem is a purchased product within an order.
type LineItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Client lists orders from the upstream commerce system.
type Client interface {
	ListOrders(ctx context.Context) ([]Order, error)
}

// ErrUpstream marks failures of the commerce API itself, as opposed to
// local processing errors. The whole sync run aborts on it.
var ErrUpstream = errors.New("commerce_upstream_failure")

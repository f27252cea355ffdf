package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/learnsprout/sproutlink/internal/config"
	"go.uber.org/zap"
)

const ordersPath = "/1.0/commerce/orders"

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// NewClient builds a Client for the Squarespace commerce orders API.
func NewClient(cfg config.Config, log *zap.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.Commerce.BaseURL, "/"),
		apiKey:  cfg.Commerce.APIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.Named("commerce.client"),
	}
}

type ordersPage struct {
	Result     []Order `json:"result"`
	Pagination struct {
		HasNextPage    bool   `json:"hasNextPage"`
		NextPageCursor string `json:"nextPageCursor"`
	} `json:"pagination"`
}

func (c *httpClient) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	cursor := ""

	for {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		orders = append(orders, page.Result...)

		if !page.Pagination.HasNextPage || strings.TrimSpace(page.Pagination.NextPageCursor) == "" {
			return orders, nil
		}
		cursor = page.Pagination.NextPageCursor
	}
}

func (c *httpClient) fetchPage(ctx context.Context, cursor string) (*ordersPage, error) {
	endpoint := c.baseURL + ordersPath
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}

	var page *ordersPage
	err := retry.Do(
		func() error {
			var err error
			page, err = c.doFetch(ctx, endpoint)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return page, nil
}

func (c *httpClient) doFetch(ctx context.Context, endpoint string) (*ordersPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "sproutlink")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &transientError{err: fmt.Errorf("orders API returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("orders API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page ordersPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode orders response: %w", err)
	}

	c.log.Debug("fetched orders page", zap.Int("count", len(page.Result)))
	return &page, nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

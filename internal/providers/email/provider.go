package email

import "context"

// Provider sends transactional email. Delivery is best-effort: callers
// decide what a send failure means for their own state.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

// Package email delivers outbound mail notifications. The production
// SMTP relay lives on the DSI network; outside it the mock notifier
// logs what would have been sent.
package email

import (
	"context"
	"log/slog"

	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// MockSMTPNotifier logs outbound mail instead of delivering it. Used in
// development and tests.
type MockSMTPNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

func NewMockSMTPNotifier(logger *slog.Logger) *MockSMTPNotifier {
	return &MockSMTPNotifier{logger: logger}
}

func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotifierParams) error {
	n.logger.InfoContext(ctx, "mock email sent",
		"to", params.To,
		"subject", params.Subject,
	)
	return nil
}

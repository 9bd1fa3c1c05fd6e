package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain outbound email. The platform assumes no richer contract
// from the delivery side.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
}

// Sender delivers outbound email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleSender logs messages instead of delivering them. Used in development
// and tests.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender constructs a console sender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send logs the message.
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("outbound email",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

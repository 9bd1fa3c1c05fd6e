package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridSender delivers email through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgridSender constructs a SendGrid-backed sender.
func NewSendgridSender(apiKey, fromName, fromAddress string) *SendgridSender {
	return &SendgridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers a single message.
func (s *SendgridSender) Send(_ context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	m := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.Body, "")

	res, err := s.client.Send(m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

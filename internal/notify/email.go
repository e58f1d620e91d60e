// internal/notify/email.go
// Outbound email for connection-request notifications.
// Provider selection mirrors the rest of the app: sendgrid in production,
// mock everywhere else.

package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notifier delivers the "you have a new connection request" message.
type Notifier interface {
	NotifyConnectionRequest(ctx context.Context, toEmail, fromName string) error
}

// SendGridNotifier implements Notifier using SendGrid
type SendGridNotifier struct {
	apiKey string
	from   string
}

// NewSendGridNotifier creates a SendGrid-backed notifier
func NewSendGridNotifier(apiKey, from string) Notifier {
	return &SendGridNotifier{apiKey: apiKey, from: from}
}

func (n *SendGridNotifier) NotifyConnectionRequest(ctx context.Context, toEmail, fromName string) error {
	subject := fmt.Sprintf("%s wants to connect with you", fromName)
	body := fmt.Sprintf(
		"%s sent you a connection request on Orbit. Open the app to respond.",
		fromName,
	)

	from := mail.NewEmail("Orbit", n.from)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(n.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	return nil
}

// MockNotifier logs instead of sending; used in development
type MockNotifier struct{}

func NewMockNotifier() Notifier {
	return &MockNotifier{}
}

func (n *MockNotifier) NotifyConnectionRequest(ctx context.Context, toEmail, fromName string) error {
	log.Printf("[MOCK EMAIL] to=%s: %s wants to connect", toEmail, fromName)
	return nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// NotificationService sends transactional email to users.
type NotificationService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
}

// EmailProvider abstracts the outbound mail transport.
type EmailProvider interface {
	Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error
}

// NotificationServiceImpl builds verification messages and hands them to a provider.
type NotificationServiceImpl struct {
	provider EmailProvider
	appURL   string
}

// NewNotificationService creates a notification service backed by the given provider
func NewNotificationService(provider EmailProvider, appURL string) NotificationService {
	return &NotificationServiceImpl{provider: provider, appURL: appURL}
}

// SendVerificationEmail sends the single-use verification link for a new account
func (n *NotificationServiceImpl) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	verifyURL := fmt.Sprintf("%s/verify?token=%s", n.appURL, token)

	subject := "Verify your Elby AI account"
	plainText := fmt.Sprintf("Welcome to Elby AI.\n\nOpen the link below to verify your email address and sign in:\n\n%s\n\nThe link can only be used once. If you did not create this account, ignore this email.", verifyURL)
	htmlContent := fmt.Sprintf(`<p>Welcome to Elby AI.</p>
<p>Click the link below to verify your email address and sign in:</p>
<p><a href="%s">Verify my account</a></p>
<p>The link can only be used once. If you did not create this account, ignore this email.</p>`, verifyURL)

	if err := n.provider.Send(ctx, toEmail, subject, plainText, htmlContent); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// SendGridEmailProvider sends mail through the SendGrid API.
type SendGridEmailProvider struct {
	apiKey    string
	fromName  string
	fromEmail string
}

func NewSendGridEmailProvider(apiKey, fromName, fromEmail string) EmailProvider {
	return &SendGridEmailProvider{apiKey: apiKey, fromName: fromName, fromEmail: fromEmail}
}

func (p *SendGridEmailProvider) Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(p.fromName, p.fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)

	client := sendgrid.NewSendClient(p.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// MockEmailProvider records sent messages for development and tests.
type MockEmailProvider struct {
	mu   sync.Mutex
	Sent []MockEmail
	Err  error
}

type MockEmail struct {
	To      string
	Subject string
	Body    string
}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sent = append(p.Sent, MockEmail{To: toEmail, Subject: subject, Body: plainText})
	log.Printf("mock email to %s: %s", toEmail, subject)
	return nil
}

// LastTo returns the recipient of the most recently sent message, if any.
func (p *MockEmailProvider) LastTo() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Sent) == 0 {
		return ""
	}
	return p.Sent[len(p.Sent)-1].To
}

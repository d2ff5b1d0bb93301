package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/btmdesk/backend/src/config"
	"github.com/username/btmdesk/backend/src/logger"
)

func NewEmailService() EmailService {
	if config.Cfg == nil || config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" {
		logger.L.Warn("Mailgun configuration incomplete, password-reset mail will only be logged")
		return &MockEmailService{}
	}
	mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
	logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
	return &MailgunEmailService{
		mg:                   mg,
		senderEmail:          config.Cfg.SenderEmail,
		senderName:           config.Cfg.SenderName,
		passwordResetBaseURL: config.Cfg.PasswordResetBaseURL,
	}
}

type MailgunEmailService struct {
	mg                   *mailgun.MailgunImpl
	senderEmail          string
	senderName           string
	passwordResetBaseURL string
}

func (s *MailgunEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := "Password Reset Request for BTMDesk"
	resetLink := fmt.Sprintf("%s?token=%s", s.passwordResetBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your BTMDesk account. "+
		"Click the link below to choose a new password:\n\n%s\n\n"+
		"If you did not request this, you can ignore this email.\n", username, resetLink)

	message := mailgun.NewMessage(from, subject, body, toEmail)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send password reset email via Mailgun", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	logger.L.Info("Password reset email sent", "to", toEmail)
	return nil
}

// MockEmailService logs instead of sending; used when Mailgun is not
// configured (local development, tests).
type MockEmailService struct{}

func (s *MockEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	logger.L.Info("MOCK password reset email", "to", toEmail, "username", username, "token", token)
	return nil
}

package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/feedback-app/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendWelcome sends the account-created email. It is a no-op when SMTP is not configured.
func (s *Sender) SendWelcome(to, username, fullName string) error {
	if !s.cfg.MailEnabled() {
		s.logger.Debugf("Mail disabled, skipping welcome email for %s", username)
		return nil
	}

	e := s.welcomeMessage(to, username, fullName)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) welcomeMessage(to, username, fullName string) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Welcome to Feedback"

	name := fullName
	if name == "" {
		name = username
	}
	body := fmt.Sprintf("Dear %s,\n\n", name)
	body += fmt.Sprintf(
		"Your account %q has been created.\n"+
			"You can now log in and start posting feedback.\n",
		username,
	)
	body += "\nBest regards,\nFeedback"
	e.Text = []byte(body)
	return e
}

package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/feedback-app/internal/config"
)

func newTestSender(cfg *config.Config) (*Sender, *[]*email.Email) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sent := []*email.Email{}
	s := NewSender(cfg, logger)
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, e)
		return nil
	}
	return s, &sent
}

func TestSendWelcomeDisabled(t *testing.T) {
	s, sent := newTestSender(config.Default())

	require.NoError(t, s.SendWelcome("bob@example.com", "bob", "Bob Builder"))
	assert.Empty(t, *sent)
}

func TestSendWelcome(t *testing.T) {
	cfg := config.Default()
	cfg.SMTPHost = "smtp.example.com"
	cfg.SenderEmail = "noreply@example.com"
	s, sent := newTestSender(cfg)

	require.NoError(t, s.SendWelcome("bob@example.com", "bob", "Bob Builder"))
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, []string{"bob@example.com"}, msg.To)
	assert.Contains(t, string(msg.Text), "Dear Bob Builder")
	assert.Contains(t, string(msg.Text), `"bob"`)
}

func TestSendWelcomeFailure(t *testing.T) {
	cfg := config.Default()
	cfg.SMTPHost = "smtp.example.com"
	cfg.SenderEmail = "noreply@example.com"
	s, _ := newTestSender(cfg)
	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	assert.Error(t, s.SendWelcome("bob@example.com", "bob", ""))
}

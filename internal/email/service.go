package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/caremesh/credentialing-api/internal/config"
	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
)

type Service interface {
	// SendExpirationDigest mails the coordinator a summary of credentials
	// expiring soon.
	SendExpirationDigest(ctx context.Context, to string, credentials []*model.ExpiringCredential) error
	SendCustom(ctx context.Context, to, subject, body string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendExpirationDigest(ctx context.Context, to string, credentials []*model.ExpiringCredential) error {
	if len(credentials) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Credential expiration digest: %d credentials need attention", len(credentials))
	return s.SendCustom(ctx, to, subject, buildDigestBody(credentials))
}

func buildDigestBody(credentials []*model.ExpiringCredential) string {
	now := time.Now()
	var b strings.Builder
	b.WriteString("<h2>Credentials expiring soon</h2>\n<ul>\n")
	for _, c := range credentials {
		days := expiry.DaysUntil(c.ExpirationDate, now)
		when := fmt.Sprintf("in %d days", days)
		if days < 0 {
			when = fmt.Sprintf("%d days ago", -days)
		} else if days == 0 {
			when = "today"
		}
		b.WriteString(fmt.Sprintf("<li><strong>%s</strong>: %s %s (%s) expires %s, on %s</li>\n",
			c.PhysicianName, c.EntityType, c.Identifier, c.State, when,
			c.ExpirationDate.Format("Jan 2, 2006")))
	}
	b.WriteString("</ul>\n")
	return b.String()
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Invitation carries what an invite email needs.
type Invitation struct {
	To        string
	Name      string
	Role      string
	InvitedBy string
	Token     string
	ExpiresAt time.Time
}

type Service interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	AcceptURL   string
	PracticeApp string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	cfg    Config
	dialer sender
}

// NewSMTPService sends mail through the configured SMTP relay. With no host
// configured it returns a service that only logs.
func NewSMTPService(cfg Config) Service {
	if cfg.Host == "" {
		return &logService{}
	}
	if cfg.PracticeApp == "" {
		cfg.PracticeApp = "Wellness"
	}
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendInvitation(ctx context.Context, inv Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", inv.To)
	m.SetHeader("Subject", fmt.Sprintf("You have been invited to %s", s.cfg.PracticeApp))
	m.SetBody("text/plain", invitationBody(s.cfg, inv))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}
	return nil
}

func invitationBody(cfg Config, inv Invitation) string {
	var b strings.Builder
	greeting := inv.Name
	if greeting == "" {
		greeting = inv.To
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting)
	if inv.InvitedBy != "" {
		fmt.Fprintf(&b, "%s has invited you to join %s as %s.\n", inv.InvitedBy, cfg.PracticeApp, inv.Role)
	} else {
		fmt.Fprintf(&b, "You have been invited to join %s as %s.\n", cfg.PracticeApp, inv.Role)
	}
	fmt.Fprintf(&b, "\nAccept the invitation: %s\n", acceptLink(cfg.AcceptURL, inv.Token))
	fmt.Fprintf(&b, "\nThis link expires on %s.\n", inv.ExpiresAt.UTC().Format("January 2, 2006"))
	return b.String()
}

func acceptLink(base, token string) string {
	if base == "" {
		return token
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

type logService struct{}

func (logService) SendInvitation(_ context.Context, inv Invitation) error {
	log.Info().Str("to", inv.To).Str("role", inv.Role).Msg("smtp not configured, invitation not emailed")
	return nil
}

package mail

import (
	"context"
	"fmt"
	"net/url"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Notifier delivers account emails. Implementations receive raw tokens and
// must not log them.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, firstName, token string) error
}

// Config holds SMTP and link settings.
type Config struct {
	Host            string
	Port            int
	Username        string
	Password        string
	From            string
	FrontendURL     string
	VerificationURL string
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    Config
	logger *zap.Logger
	send   func(ctx context.Context, msg *gomail.Msg) error
}

var _ Notifier = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer. The SMTP connection is opened per message.
func NewSMTPMailer(cfg Config, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and sender address are required")
	}
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger,
		send: func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// SendVerificationEmail sends the link that confirms ownership of to.
func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := m.cfg.VerificationURL + "?token=" + url.QueryEscape(token)
	text, html, err := renderVerification(verificationData{Link: link})
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, to, "Verify your CampusConnect account", text, html); err != nil {
		return err
	}
	m.logger.Info("mail.verification.sent", zap.String("to", to))
	return nil
}

// SendPasswordResetEmail sends the password reset link.
func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, firstName, token string) error {
	link := m.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	text, html, err := renderPasswordReset(resetData{FirstName: firstName, Link: link})
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, to, "Reset your CampusConnect password", text, html); err != nil {
		return err
	}
	m.logger.Info("mail.password_reset.sent", zap.String("to", to))
	return nil
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, text, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	if err := m.send(ctx, msg); err != nil {
		m.logger.Error("mail.send.failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogNotifier logs instead of sending. It is used when SMTP is not configured
// in development and never logs the token itself.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendVerificationEmail logs the recipient.
func (n *LogNotifier) SendVerificationEmail(_ context.Context, to, _ string) error {
	n.logger.Warn("mail.verification.skipped", zap.String("to", to), zap.String("reason", "smtp not configured"))
	return nil
}

// SendPasswordResetEmail logs the recipient.
func (n *LogNotifier) SendPasswordResetEmail(_ context.Context, to, _, _ string) error {
	n.logger.Warn("mail.password_reset.skipped", zap.String("to", to), zap.String("reason", "smtp not configured"))
	return nil
}

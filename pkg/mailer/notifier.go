package mailer

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/config"
	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

// Publisher hands a JSON job to the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// ActionLink appends the token to a frontend URL as the "token" query parameter.
func ActionLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func verifyJob(cfg *config.Config, email, name, token string) EmailJob {
	return EmailJob{
		ID:       uuid.NewString(),
		To:       email,
		Template: mailtpl.VerifyEmail,
		Data: mailtpl.NewVerifyEmailData(cfg, name, email, ActionLink(cfg.VerifyEmailURL, token),
			mailtpl.WithExpiresIn(cfg.VerifyTokenTTL)),
	}
}

func resetJob(cfg *config.Config, email, name, token string) EmailJob {
	return EmailJob{
		ID:       uuid.NewString(),
		To:       email,
		Template: mailtpl.ResetPassword,
		Data: mailtpl.NewResetPasswordData(cfg, name, email, ActionLink(cfg.ResetPasswordURL, token),
			mailtpl.WithTime(time.Now()), mailtpl.WithExpiresIn(cfg.ResetTokenTTL)),
	}
}

// QueueNotifier publishes email jobs for cmd/email_worker.
type QueueNotifier struct {
	Publisher Publisher
	Cfg       *config.Config
}

func NewQueueNotifier(p Publisher, cfg *config.Config) *QueueNotifier {
	return &QueueNotifier{Publisher: p, Cfg: cfg}
}

func (n *QueueNotifier) SendVerificationEmail(ctx context.Context, email, name, token string) error {
	return n.Publisher.PublishJSON(ctx, verifyJob(n.Cfg, email, name, token))
}

func (n *QueueNotifier) SendPasswordResetEmail(ctx context.Context, email, name, token string) error {
	return n.Publisher.PublishJSON(ctx, resetJob(n.Cfg, email, name, token))
}

// DirectNotifier renders and sends in the request path. Used when no queue is configured.
type DirectNotifier struct {
	Sender Sender
	Cfg    *config.Config
}

func NewDirectNotifier(s Sender, cfg *config.Config) *DirectNotifier {
	return &DirectNotifier{Sender: s, Cfg: cfg}
}

func (n *DirectNotifier) send(ctx context.Context, job EmailJob) error {
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return err
	}
	return n.Sender.Send(ctx, job.To, subject, text, html)
}

func (n *DirectNotifier) SendVerificationEmail(ctx context.Context, email, name, token string) error {
	return n.send(ctx, verifyJob(n.Cfg, email, name, token))
}

func (n *DirectNotifier) SendPasswordResetEmail(ctx context.Context, email, name, token string) error {
	return n.send(ctx, resetJob(n.Cfg, email, name, token))
}

// LogNotifier drops every email. It is wired when MAIL_SEND_ENABLED=false.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n *LogNotifier) SendVerificationEmail(_ context.Context, email, _, _ string) error {
	n.Logger.WithFields(logrus.Fields{"to": email, "template": mailtpl.VerifyEmail}).Info("mail sending disabled; email skipped")
	return nil
}

func (n *LogNotifier) SendPasswordResetEmail(_ context.Context, email, _, _ string) error {
	n.Logger.WithFields(logrus.Fields{"to": email, "template": mailtpl.ResetPassword}).Info("mail sending disabled; email skipped")
	return nil
}

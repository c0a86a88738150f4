package mailer

import (
	"context"
	"fmt"

	"movie-reservation/pkg/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New returns an SMTP mailer, or one that only logs when no SMTP host is configured
func New(config utils.EmailConfig, log *zap.Logger) Mailer {
	log = log.With(zap.String("component", "mailer"))
	if config.Host == "" {
		return &logMailer{log: log}
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
		from:   config.From,
		log:    log,
	}
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error("Failed to send email", zap.Error(err), zap.String("to", to), zap.String("subject", subject))
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	m.log.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type logMailer struct {
	log *zap.Logger
}

func (m *logMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.log.Info("SMTP disabled, email logged only",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)))
	return nil
}

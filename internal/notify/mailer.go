// Package notify 负责订阅通知与通讯邮件的渲染和后台投递。
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pklatka/modernblog/internal/config"
	"gopkg.in/gomail.v2"
)

// Message 是一封待发送的邮件。
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// Mailer 发送单封邮件。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer 通过 gomail 连接 SMTP 服务器发送邮件。
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPMailer creates a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	if m.fromName != "" {
		gm.SetAddressHeader("From", m.from, m.fromName)
	} else {
		gm.SetHeader("From", m.from)
	}
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	for key, value := range msg.Headers {
		gm.SetHeader(key, value)
	}

	switch {
	case msg.HTML != "" && msg.Text != "":
		gm.SetBody("text/plain", msg.Text)
		gm.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		gm.SetBody("text/html", msg.HTML)
	default:
		gm.SetBody("text/plain", msg.Text)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer 在未配置 SMTP 时使用，只记录日志。
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("smtp not configured, skipping mail to %s: %s", msg.To, strings.TrimSpace(msg.Subject))
	return nil
}

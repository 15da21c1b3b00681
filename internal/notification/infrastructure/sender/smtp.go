package sender

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/wyfcoding/bookstore/internal/notification/domain"
	"github.com/wyfcoding/pkg/logging"
)

// SMTPSender 通过 SMTP 外发邮件
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(host, port, username, password, from string) domain.Sender {
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, target, subject, body string, html bool) error {
	logging.Info(ctx, "sending email", "target", target, "subject", subject)

	contentType := "text/plain; charset=UTF-8"
	if html {
		contentType = "text/html; charset=UTF-8"
	}
	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + target + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{target}, msg)
}

// LogSender 开发环境使用，只记日志不真正外发
type LogSender struct{}

func NewLogSender() domain.Sender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, target, subject, body string, html bool) error {
	logging.Info(ctx, "email suppressed (log sender)", "target", target, "subject", subject)
	logging.Debug(ctx, "email body", "body", body)
	return nil
}

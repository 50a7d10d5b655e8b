package mailer

import (
	"taskhub/configs"

	"gopkg.in/gomail.v2"
)

// Sender mengirim email ke satu penerima.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTP adalah Sender yang mengirim lewat server SMTP dari konfigurasi.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(cfg configs.Config) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.MailFrom,
	}
}

func (s *SMTP) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return s.dialer.DialAndSend(m)
}

// Discard membuang semua email, dipakai saat testing.
type Discard struct{}

func (Discard) Send(to, subject, htmlBody string) error { return nil }

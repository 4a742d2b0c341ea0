package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/garcia-cyber/popcornRDC/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending labels as PDF attachments.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

// EnviarEtiqueta mails a label PDF held in memory.
func (m *Mailer) EnviarEtiqueta(to, subject, body, filename string, pdf []byte) error {
	e := email.NewEmail()
	e.From = m.from
	if e.From == "" {
		e.From = m.user
	}
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(pdf) > 0 {
		if _, err := e.Attach(bytes.NewReader(pdf), filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}

package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends rendered emails through the Mailgun HTTP API.
type Mailgun struct {
	Sender  string
	Timeout time.Duration
	client  mg.Mailgun
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Sender: sender, Timeout: 10 * time.Second, client: mg.NewMailgun(domain, apiKey)}
}

// WithAPIBase points the client at another region or a test server.
func (m *Mailgun) WithAPIBase(url string) *Mailgun {
	m.client.SetAPIBase(url)
	return m
}

// Send sends an email via Mailgun. html is optional; if provided it will be used as HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

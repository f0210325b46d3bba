package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-task-manager/pkg/mailer/templates"
)

// OTPMessage describes a one-time code that must reach the account owner.
type OTPMessage struct {
	To        string
	Name      string
	Purpose   string // verify or reset
	Code      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Publisher puts a JSON payload on a queue; implemented by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Sender delivers a rendered email; implemented by Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// OTPJob builds the templated email job for msg.
func OTPJob(b mailtpl.Brand, msg OTPMessage) EmailJob {
	name := mailtpl.OTPVerify
	if msg.Purpose == "reset" {
		name = mailtpl.OTPReset
	}
	issued := msg.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	return EmailJob{
		To:       msg.To,
		Template: name,
		Data:     mailtpl.NewOTPData(b, name, msg.Name, msg.To, msg.Code, msg.ExpiresAt, issued),
	}
}

func WelcomeJob(b mailtpl.Brand, to, name string) EmailJob {
	return EmailJob{To: to, Template: mailtpl.Welcome, Data: mailtpl.NewWelcomeData(b, name, to)}
}

// ErrUndeliverable marks jobs that can never succeed (no recipient, bad template);
// queue consumers drop them instead of retrying.
var ErrUndeliverable = errors.New("undeliverable email job")

// Process renders a job (when it names a template) and hands it to sender.
func Process(ctx context.Context, job EmailJob, sender Sender) error {
	job.Normalize()
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrUndeliverable)
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrUndeliverable, job.Template, err)
		}
		subject, text, html = s, t, h
	}
	return sender.Send(ctx, job.To, subject, text, html)
}

// QueueNotifier publishes email jobs for cmd/email_worker to deliver.
type QueueNotifier struct {
	pub   Publisher
	brand mailtpl.Brand
}

func NewQueueNotifier(pub Publisher, brand mailtpl.Brand) *QueueNotifier {
	return &QueueNotifier{pub: pub, brand: brand}
}

func (n *QueueNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	return n.pub.PublishJSON(ctx, OTPJob(n.brand, msg))
}

func (n *QueueNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return n.pub.PublishJSON(ctx, WelcomeJob(n.brand, to, name))
}

// DirectNotifier renders and sends in the request path.
type DirectNotifier struct {
	sender Sender
	brand  mailtpl.Brand
}

func NewDirectNotifier(sender Sender, brand mailtpl.Brand) *DirectNotifier {
	return &DirectNotifier{sender: sender, brand: brand}
}

func (n *DirectNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	return Process(ctx, OTPJob(n.brand, msg), n.sender)
}

func (n *DirectNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return Process(ctx, WelcomeJob(n.brand, to, name), n.sender)
}

// LogNotifier only logs; used when MAIL_SEND_ENABLED=false. The code is
// logged at debug level so local runs can complete the flows.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOTP(_ context.Context, msg OTPMessage) error {
	n.log.WithFields(logrus.Fields{
		"to":         msg.To,
		"purpose":    msg.Purpose,
		"expires_at": msg.ExpiresAt.UTC().Format(time.RFC3339),
	}).Info("otp issued (mail sending disabled)")
	n.log.WithField("to", msg.To).Debugf("otp code: %s", msg.Code)
	return nil
}

func (n *LogNotifier) SendWelcome(_ context.Context, to, _ string) error {
	n.log.WithField("to", to).Info("welcome email skipped (mail sending disabled)")
	return nil
}

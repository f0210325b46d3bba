package templates

import (
	"strconv"
	"strings"
	"time"
)

// Brand carries the company fields shared by every email.
type Brand struct {
	CompanyName string
	AppName     string
	SupportURL  string
	FrontendURL string
}

// Option pattern
type Option func(*EmailData)

func WithActionURL(url string) Option { return func(d *EmailData) { d.ActionURL = url } }

func WithCode(code string) Option { return func(d *EmailData) { d.Code = code } }

func WithExpiresAt(t time.Time, now time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
		d.ExpiresIn = humanDuration(t.Sub(now))
	}
}

// NewBaseEmailData fills the common fields from the brand, then applies options.
func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		Type:        typ,
		CompanyName: b.CompanyName,
		AppName:     b.AppName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewOTPData builds template data for a verify or reset code email.
func NewOTPData(b Brand, typ, name, email, code string, expiresAt, now time.Time) map[string]any {
	path := "/verify-email"
	if typ == OTPReset {
		path = "/reset-password"
	}
	d := NewBaseEmailData(b, typ, name, email,
		WithCode(code),
		WithExpiresAt(expiresAt, now),
		WithActionURL(joinURL(b.FrontendURL, path)),
	)
	return ToMap(d)
}

func NewWelcomeData(b Brand, name, email string) map[string]any {
	d := NewBaseEmailData(b, Welcome, name, email, WithActionURL(joinURL(b.FrontendURL, "/tasks")))
	return ToMap(d)
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + path
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		h := int(d.Round(time.Hour) / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return strconv.Itoa(h) + " hours"
	case d >= time.Minute:
		m := int(d.Round(time.Minute) / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	default:
		return "a few moments"
	}
}

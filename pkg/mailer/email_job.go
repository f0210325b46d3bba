package mailer

import "strings"

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // otp_verify, otp_reset, welcome
	Data     map[string]any `json:"data,omitempty"`
}

// Normalize trims the recipient and makes sure templated jobs carry it in Data.
func (j *EmailJob) Normalize() {
	j.To = strings.TrimSpace(j.To)
	j.Template = strings.TrimSpace(j.Template)
	if j.Template == "" {
		return
	}
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	if v, ok := j.Data["Email"]; !ok || v == "" {
		j.Data["Email"] = j.To
	}
	if j.To == "" {
		if v, ok := j.Data["Email"].(string); ok {
			j.To = strings.TrimSpace(v)
		}
	}
}

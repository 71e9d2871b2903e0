package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/JonMunkholm/mongoetl/internal/config"
)

var bodyTemplate = template.Must(template.New("body").Parse(
	`{{if .Succeeded}}The ETL pipeline for dataset {{.Dataset}} completed successfully.{{else}}The ETL pipeline for dataset {{.Dataset}} failed.{{end}}

Run:      {{.RunID}}
Source:   {{.Source}}
Target:   {{.Target}}
Started:  {{.StartedAt.Format "2006-01-02 15:04:05 MST"}}
Finished: {{.FinishedAt.Format "2006-01-02 15:04:05 MST"}}
{{if .Error}}
Error:    {{.Error}}{{if .ErrorCode}} (Code: {{.ErrorCode}}){{end}}
{{end}}
Steps:
{{range .Steps}}  - {{printf "%-16s" .Step}} {{printf "%-9s" .Status}} {{.Message}}
{{end}}`))

// Email sends notifications through an SMTP relay.
type Email struct {
	cfg config.EmailConfig
}

// NewEmail creates an email notifier.
func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg}
}

// Name returns the provider name
func (e *Email) Name() string {
	return "email"
}

// Send delivers the event to every configured recipient.
func (e *Email) Send(ctx context.Context, event Event) error {
	msg, err := e.buildMessage(event)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(e.cfg.Host, e.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email via %s:%d: %w", e.cfg.Host, e.cfg.Port, err)
	}
	return nil
}

func (e *Email) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(e.cfg.TLSPolicy)),
		mail.WithTimeout(e.cfg.Timeout),
	}
	// Local relays often accept unauthenticated mail
	if e.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.SMTPUsername()),
			mail.WithPassword(e.cfg.Password),
		)
	}
	return opts
}

func (e *Email) buildMessage(event Event) (*mail.Msg, error) {
	if event.FinishedAt.IsZero() {
		event.FinishedAt = time.Now()
	}

	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.cfg.From, err)
	}
	if err := msg.To(e.cfg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(e.subject(event))
	msg.SetDateWithValue(event.FinishedAt)

	body, err := renderBody(event)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (e *Email) subject(event Event) string {
	if event.Succeeded() {
		return e.cfg.Subject
	}
	return fmt.Sprintf("ETL pipeline failed: %s", event.Dataset)
}

func renderBody(event Event) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, event); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch strings.ToLower(s) {
	case "opportunistic":
		return mail.TLSOpportunistic
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSMandatory
	}
}

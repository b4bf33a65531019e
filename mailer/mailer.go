// Package mailer sends staff notifications for submissions made through the
// public forms.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/dcode-github/realestate_platform/backend/config"
	"github.com/dcode-github/realestate_platform/backend/models"
	gomail "github.com/wneessen/go-mail"
)

type Sender interface {
	ContactReceived(ctx context.Context, c *models.ContactSubmission) error
	ListingSubmitted(ctx context.Context, p *models.Property, l *models.Lead) error
}

// New returns an SMTP sender when credentials are configured and a no-op
// sender otherwise.
func New(cfg config.SMTPConfig) Sender {
	if !cfg.Enabled() {
		return NoopSender{}
	}
	return &SMTPSender{cfg: cfg}
}

type NoopSender struct{}

func (NoopSender) ContactReceived(context.Context, *models.ContactSubmission) error { return nil }
func (NoopSender) ListingSubmitted(context.Context, *models.Property, *models.Lead) error {
	return nil
}

type SMTPSender struct {
	cfg config.SMTPConfig
}

func (s *SMTPSender) recipient() string {
	if s.cfg.NotifyTo != "" {
		return s.cfg.NotifyTo
	}
	return s.cfg.From
}

func (s *SMTPSender) ContactReceived(ctx context.Context, c *models.ContactSubmission) error {
	body, err := render(contactTemplate, c)
	if err != nil {
		return err
	}
	return s.send(ctx, c.Email, fmt.Sprintf("New contact form submission: %s", c.Subject), body)
}

func (s *SMTPSender) ListingSubmitted(ctx context.Context, p *models.Property, l *models.Lead) error {
	body, err := render(listingTemplate, listingData{Property: p, Lead: l})
	if err != nil {
		return err
	}
	return s.send(ctx, l.Email, fmt.Sprintf("New listing submitted: %s", p.Title), body)
}

func (s *SMTPSender) send(ctx context.Context, replyTo, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.recipient()); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return fmt.Errorf("smtp reply-to: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.User),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type listingData struct {
	Property *models.Property
	Lead     *models.Lead
}

var contactTemplate = template.Must(template.New("contact").Parse(`<h2>New contact form submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
{{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
{{if .Source.Page}}<p><small>Sent from {{.Source.Page}}</small></p>{{end}}`))

var listingTemplate = template.Must(template.New("listing").Parse(`<h2>New property listing for review</h2>
<p><strong>{{.Property.Title}}</strong> ({{.Property.PropertyType}}, {{.Property.ListingType}})</p>
<p>{{.Property.FullAddress}}</p>
<p><strong>Price:</strong> {{printf "%.0f" .Property.Price}}</p>
<p><strong>Submitted by:</strong> {{.Lead.Name}} &lt;{{.Lead.Email}}&gt;{{if .Lead.Phone}}, {{.Lead.Phone}}{{end}}</p>
<p>{{.Lead.Message}}</p>`))

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

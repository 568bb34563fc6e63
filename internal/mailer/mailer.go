// Package mailer renders booking notifications as HTML email and delivers
// them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// Config holds SMTP settings. Host empty means mail is disabled.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool { return c.Host != "" && c.From != "" }

// ErrNoRecipient is returned for notifications without an owner email.
var ErrNoRecipient = errors.New("notification has no recipient email")

const qrAttachmentName = "ticket-qr.png"

// SMTPMailer sends one message per notification.
type SMTPMailer struct {
	cfg Config
	log logrus.FieldLogger
}

// New returns a mailer for cfg.
func New(cfg Config, log logrus.FieldLogger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

// Send delivers n to its owner. Confirmation emails carry the booking code
// as an embedded QR image.
func (m *SMTPMailer) Send(ctx context.Context, n model.Notification) error {
	msg, err := m.Build(n)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.WithFields(logrus.Fields{"kind": n.Kind, "booking_id": n.BookingID}).Info("booking email sent")
	return nil
}

// Build renders the message for n without sending it.
func (m *SMTPMailer) Build(n model.Notification) (*mail.Msg, error) {
	if n.OwnerEmail == "" {
		return nil, ErrNoRecipient
	}
	msg := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return nil, fmt.Errorf("from address: %w", err)
		}
	} else if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(n.OwnerEmail); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(Subject(n))

	body, err := RenderBody(n)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextHTML, body)

	if n.Kind == model.NotificationBookingConfirmed {
		png, err := utils.QRCodePNG(n.Code)
		if err != nil {
			return nil, fmt.Errorf("render qr: %w", err)
		}
		if err := msg.EmbedReader(qrAttachmentName, bytes.NewReader(png)); err != nil {
			return nil, fmt.Errorf("embed qr: %w", err)
		}
	}
	return msg, nil
}

// Subject returns the email subject line for n.
func Subject(n model.Notification) string {
	switch n.Kind {
	case model.NotificationBookingCanceled:
		return fmt.Sprintf("Booking %s canceled", n.Code)
	default:
		return fmt.Sprintf("Booking confirmed: %s", n.Code)
	}
}

const confirmedHTML = `<h2>Your booking is confirmed</h2>
<p>Event: {{.EventID}}<br>Ticket type: {{.TicketType}}<br>Quantity: {{.Quantity}}<br>Total: {{printf "%.2f" .Total}}</p>
<p>Your admission code is <strong>{{.Code}}</strong>. Show the QR code below at the entrance.</p>
<img src="cid:` + qrAttachmentName + `" alt="{{.Code}}">`

const canceledHTML = `<h2>Your booking was canceled</h2>
<p>Booking {{.Code}} for event {{.EventID}} ({{.Quantity}} x {{.TicketType}}) has been canceled.</p>`

var bodyTemplates = template.Must(template.Must(template.New("confirmed").Parse(confirmedHTML)).New("canceled").Parse(canceledHTML))

type bodyData struct {
	model.Notification
	Total float64
}

// RenderBody returns the HTML body for n.
func RenderBody(n model.Notification) (string, error) {
	name := "confirmed"
	if n.Kind == model.NotificationBookingCanceled {
		name = "canceled"
	}
	var buf bytes.Buffer
	if err := bodyTemplates.ExecuteTemplate(&buf, name, bodyData{Notification: n, Total: float64(n.TotalAmountCents) / 100}); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

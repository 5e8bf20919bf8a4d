// Package mail renders and delivers account emails: welcome, password
// reset and security alerts.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:generate mockgen -source=mailer.go -destination=mock/mailer.go -package=mock

// AlertKind is the security event a user is told about.
type AlertKind string

const (
	AlertLogin          AlertKind = "LOGIN"
	AlertPasswordChange AlertKind = "PASSWORD_CHANGE"
)

// Mailer sends the account lifecycle emails.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendSecurityAlert(ctx context.Context, to string, kind AlertKind) error
}

// Message is a rendered email ready for a Sender.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TemplateMailer renders the built-in templates and hands them to a Sender.
type TemplateMailer struct {
	sender      Sender
	from        string
	frontendURL string
}

var _ Mailer = (*TemplateMailer)(nil)

func NewTemplateMailer(sender Sender, from, frontendURL string) *TemplateMailer {
	return &TemplateMailer{
		sender:      sender,
		from:        from,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (m *TemplateMailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, to, "Welcome to Congregation!", welcomeTmpl, map[string]string{"Name": name})
}

func (m *TemplateMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	return m.send(ctx, to, "Reset Your Password", resetTmpl, map[string]string{"Link": link})
}

func (m *TemplateMailer) SendSecurityAlert(ctx context.Context, to string, kind AlertKind) error {
	subject, event := "New Login Detected", "new login"
	if kind == AlertPasswordChange {
		subject, event = "Password Changed", "password change"
	}
	return m.send(ctx, to, subject, alertTmpl, map[string]string{"Event": event})
}

func (m *TemplateMailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("mail: render %q: %w", subject, err)
	}
	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      to,
		Subject: subject,
		HTML:    body.String(),
	})
}

package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendOtpEmail(toEmail, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your ChefServe verification code"
	html := fmt.Sprintf(`
		<h2>Your ChefServe Verification Code</h2>
		<p>Your one-time code is: <strong style="font-size: 24px; color: #E8590C;">%s</strong></p>
		<p>Enter it in the app to continue signing in.</p>
		<p>This code will expire in 5 minutes. Never share it with anyone.</p>
	`, code)

	text := fmt.Sprintf("Your ChefServe verification code is: %s\n\nIt expires in 5 minutes. Never share it with anyone.", code)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) SendLoginAlert(toEmail, ip, device string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "New sign-in to your ChefServe account"
	html := fmt.Sprintf(`
		<h2>New Sign-In</h2>
		<p>Your ChefServe vendor account was just signed in to.</p>
		<p>Device: <strong>%s</strong><br>IP address: <strong>%s</strong></p>
		<p>If this was you, no action is needed. If not, contact support right away.</p>
	`, device, ip)

	text := fmt.Sprintf("Your ChefServe vendor account was just signed in to.\n\nDevice: %s\nIP address: %s\n\nIf this wasn't you, contact support right away.", device, ip)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) SendWelcomeEmail(toEmail, toName, ip, device string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Welcome to ChefServe"
	html := fmt.Sprintf(`
		<h2>Welcome to ChefServe, %s!</h2>
		<p>Your vendor account is ready. Complete your KYC to start listing your kitchen.</p>
		<p>Registered from %s (%s).</p>
		<p>If you didn't create this account, contact support right away.</p>
	`, toName, device, ip)

	text := fmt.Sprintf("Welcome to ChefServe, %s!\n\nYour vendor account is ready. Complete your KYC to start listing your kitchen.\n\nRegistered from %s (%s).", toName, device, ip)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}

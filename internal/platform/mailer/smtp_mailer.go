package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
	}
}

func (s *SMTPMailer) SendOtpEmail(toEmail, code string) error {
	subject := "Your ChefServe verification code"
	text := fmt.Sprintf("Your ChefServe verification code is: %s\n\nIt expires in 5 minutes. Never share it with anyone.", code)
	html := fmt.Sprintf(`
		<h2>Your ChefServe Verification Code</h2>
		<p>Your one-time code is: <strong style="font-size: 24px; color: #E8590C;">%s</strong></p>
		<p>Enter it in the app to continue signing in.</p>
		<p>This code will expire in 5 minutes. Never share it with anyone.</p>
	`, code)

	return s.sendEmail(toEmail, "", subject, text, html)
}

func (s *SMTPMailer) SendLoginAlert(toEmail, ip, device string) error {
	subject := "New sign-in to your ChefServe account"
	text := fmt.Sprintf("Your ChefServe vendor account was just signed in to.\n\nDevice: %s\nIP address: %s\n\nIf this wasn't you, contact support right away.", device, ip)
	html := fmt.Sprintf(`
		<h2>New Sign-In</h2>
		<p>Your ChefServe vendor account was just signed in to.</p>
		<p>Device: <strong>%s</strong><br>IP address: <strong>%s</strong></p>
		<p>If this was you, no action is needed. If not, contact support right away.</p>
	`, device, ip)

	return s.sendEmail(toEmail, "", subject, text, html)
}

func (s *SMTPMailer) SendWelcomeEmail(toEmail, toName, ip, device string) error {
	subject := "Welcome to ChefServe"
	text := fmt.Sprintf("Welcome to ChefServe, %s!\n\nYour vendor account is ready. Complete your KYC to start listing your kitchen.\n\nRegistered from %s (%s).", toName, device, ip)
	html := fmt.Sprintf(`
		<h2>Welcome to ChefServe, %s!</h2>
		<p>Your vendor account is ready. Complete your KYC to start listing your kitchen.</p>
		<p>Registered from %s (%s).</p>
		<p>If you didn't create this account, contact support right away.</p>
	`, toName, device, ip)

	return s.sendEmail(toEmail, toName, subject, text, html)
}

func (s *SMTPMailer) sendEmail(toEmail, toName, subject, text, html string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "mixed-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	// Text part
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	// HTML part
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit or development SMTP (no auth, no TLS)
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, buf.Bytes())
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// Try plain SMTP first (with STARTTLS if supported)
	if err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes()); err == nil {
		return nil
	}

	// Fallback to implicit TLS (port 465)
	if s.UseTLS {
		tlsCfg := &tls.Config{ServerName: s.Host, InsecureSkipVerify: false}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			return err
		}
		defer c.Quit()

		if s.User != "" {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}

		if err := c.Mail(s.From); err != nil {
			return err
		}
		if err := c.Rcpt(toEmail); err != nil {
			return err
		}

		w, err := c.Data()
		if err != nil {
			return err
		}

		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}

		return w.Close()
	}

	return fmt.Errorf("smtp send failed")
}

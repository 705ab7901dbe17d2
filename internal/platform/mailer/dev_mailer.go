package mailer

import (
	"fmt"

	"github.com/chefserve/chef-vendor/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendOtpEmail(toEmail, code string) error {
	logger.Info("📧 [DEV MAIL] OTP Email",
		"to", toEmail,
		"code", code,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 OTP EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: Your ChefServe verification code\n"+
		"\n"+
		"Code: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, code)

	return nil
}

func (d *DevMailer) SendLoginAlert(toEmail, ip, device string) error {
	logger.Info("📧 [DEV MAIL] Login Alert",
		"to", toEmail,
		"ip", ip,
		"device", device,
	)
	return nil
}

func (d *DevMailer) SendWelcomeEmail(toEmail, toName, ip, device string) error {
	logger.Info("📧 [DEV MAIL] Welcome Email",
		"to", toEmail,
		"name", toName,
		"ip", ip,
		"device", device,
	)
	return nil
}

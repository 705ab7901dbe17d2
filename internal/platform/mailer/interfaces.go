package mailer

type Service interface {
	SendOtpEmail(toEmail, code string) error
	SendLoginAlert(toEmail, ip, device string) error
	SendWelcomeEmail(toEmail, toName, ip, device string) error
}

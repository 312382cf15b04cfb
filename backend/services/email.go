package services

import (
	"fmt"
	"net/smtp"

	"lms/backend/config"
)

// ErrMailNotConfigured signals that no SMTP host is set; callers treat it as
// a reportable, non-fatal condition.
var ErrMailNotConfigured = fmt.Errorf("smtp is not configured")

// SendEmail delivers one HTML message through the configured SMTP relay.
func SendEmail(cfg *config.Config, to, subject, htmlBody string) error {
	if cfg.SMTPHost == "" {
		return ErrMailNotConfigured
	}

	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Training Platform <%s>\r\n", cfg.EmailSender)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", cfg.EmailSender, cfg.EmailPass, cfg.SMTPHost)
	return smtp.SendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, cfg.EmailSender, []string{to}, []byte(msg))
}

// SendInviteEmail mails a newly invited user their temporary password.
func SendInviteEmail(cfg *config.Config, to, fullName, tempPassword string) error {
	body := fmt.Sprintf(`
	<html><body>
	<h2>Welcome, %s</h2>
	<p>An account has been created for you on the training platform.</p>
	<p>Sign in with this email address and the temporary password below,
	then change it from your profile.</p>
	<p><b>%s</b></p>
	</body></html>`, fullName, tempPassword)

	return SendEmail(cfg, to, "Your training platform account", body)
}

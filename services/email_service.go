package services

import (
	"fmt"
	"net/smtp"
	"os"
)

// EmailService sends courtesy notifications over plain SMTP. All settings
// come from the environment; with no SMTP host configured every send is a
// silent no-op so mail never gates a membership operation.
type EmailService struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

func NewEmailService() *EmailService {
	return &EmailService{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     os.Getenv("SMTP_PORT"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromEmail:    os.Getenv("FROM_EMAIL"),
	}
}

func (s *EmailService) configured() bool {
	return s.SMTPHost != "" && s.SMTPPort != "" && s.FromEmail != ""
}

// SendInviteNotification tells a child by mail that a family invited them.
func (s *EmailService) SendInviteNotification(email, familyName string) error {
	if !s.configured() || email == "" {
		return nil
	}

	subject := "StepSync family invitation"
	body := fmt.Sprintf(`Hello!

The family %q has invited you to join their StepSync household.
Open the app to accept or decline the invitation.

— StepSync`, familyName)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.FromEmail, email, subject, body)
	auth := smtp.PlainAuth("", s.SMTPUsername, s.SMTPPassword, s.SMTPHost)
	return smtp.SendMail(s.SMTPHost+":"+s.SMTPPort, auth, s.FromEmail, []string{email}, []byte(msg))
}

package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"sprintarena-api/config"
)

// EmailService sends account emails. Delivery is best-effort: signup never
// fails because SMTP is down.
type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendWelcomeEmail greets a new racer.
func (es *EmailService) SendWelcomeEmail(email, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to SprintArena!")

	body := fmt.Sprintf(`
		<h2>Hey %s! 🏁</h2>
		<p>Your account is ready. Grab your phone, find some rivals nearby and race.</p>
		<p>Share your room code with friends so they can join your heat.</p>
	`, name)
	m.SetBody("text/html", body)

	if err := es.dialer.DialAndSend(m); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("failed to send welcome email")
		return err
	}

	return nil
}

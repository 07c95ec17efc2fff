package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nIBOP/portfolio-site/internal/config"
)

const maxContactMessage = 5000

var errInvalidContact = errors.New("invalid contact message")

// ContactMessage is one submission of the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
}

// Validate checks the fields a reply needs.
func (m ContactMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Message) == "" {
		return fmt.Errorf("%w: name and message are required", errInvalidContact)
	}
	if len(m.Message) > maxContactMessage {
		return fmt.Errorf("%w: message longer than %d bytes", errInvalidContact, maxContactMessage)
	}
	if strings.ContainsAny(m.Name+m.Email, "\r\n") {
		return fmt.Errorf("%w: line break in header field", errInvalidContact)
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: %v", errInvalidContact, err)
	}
	return nil
}

// Mailer delivers contact form messages.
type Mailer interface {
	Send(msg ContactMessage) error
}

type smtpMailer struct {
	host, port string
	user, pass string
	to         string
}

// newSMTPMailer returns nil when SMTP credentials are not configured.
func newSMTPMailer(cfg *config.Config) Mailer {
	if !cfg.ContactEnabled() {
		log.Println("Contact form disabled: SMTP credentials not configured")
		return nil
	}
	return &smtpMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		to:   cfg.ContactRecipient(),
	}
}

func (m *smtpMailer) Send(msg ContactMessage) error {
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.user, []string{m.to}, composeEmail(m.user, m.to, msg)); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}
	return nil
}

func composeEmail(from, to string, msg ContactMessage) []byte {
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	return []byte("To: " + to + "\r\n" +
		"Subject: Portfolio Contact: " + msg.Name + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + msg.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// handleContact returns an HTML fragment with the outcome, for the form to
// swap in place.
func (s *server) handleContact(c *gin.Context) {
	if s.mailer == nil {
		c.HTML(http.StatusServiceUnavailable, "contact-result.html", gin.H{"error": contactDisabled})
		return
	}

	msg := ContactMessage{
		Name:    strings.TrimSpace(c.PostForm("fullName")),
		Email:   strings.TrimSpace(c.PostForm("email")),
		Message: strings.TrimSpace(c.PostForm("message")),
	}
	if err := msg.Validate(); err != nil {
		c.HTML(http.StatusBadRequest, "contact-result.html", gin.H{"error": contactInvalid})
		return
	}

	if err := s.mailer.Send(msg); err != nil {
		log.Printf("Error sending email: %v", err)
		c.HTML(http.StatusOK, "contact-result.html", gin.H{"error": contactError})
		return
	}
	log.Printf("Contact message received from %s", s.hits.HashIP(c.ClientIP()))
	c.HTML(http.StatusOK, "contact-result.html", gin.H{"success": contactSuccess})
}

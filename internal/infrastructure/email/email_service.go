package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/configs"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/bulletin"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender is the part of the SendGrid client the service uses.
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService delivers bulletin digests through SendGrid.
type EmailService struct {
	config    configs.EmailConfig
	logger    *logrus.Logger
	client    Sender
	templates map[string]*template.Template
}

var _ ports.DigestMailer = (*EmailService)(nil)

// NewEmailService creates a new email service instance
func NewEmailService(config configs.EmailConfig, logger *logrus.Logger) (*EmailService, error) {
	return NewEmailServiceWithSender(config, sendgrid.NewSendClient(config.SendGridAPIKey), logger)
}

// NewEmailServiceWithSender is NewEmailService with a caller-supplied transport.
func NewEmailServiceWithSender(config configs.EmailConfig, client Sender, logger *logrus.Logger) (*EmailService, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return &EmailService{
		config:    config,
		logger:    logger,
		client:    client,
		templates: templates,
	}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{"digest"} {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// sendEmail sends an email using SendGrid
func (e *EmailService) sendEmail(to, subject, htmlContent string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.Send(message)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		e.logger.WithFields(logrus.Fields{
			"to":          to,
			"status_code": response.StatusCode,
		}).Error("SendGrid rejected email")
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	e.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"status_code": response.StatusCode,
	}).Info("Email sent successfully")

	return nil
}

func (e *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := e.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// DigestData holds data for the bulletin digest template
type DigestData struct {
	CompanyName string
	BaseURL     string
	GeneratedAt string
	Bullets     []string
	Cards       []bulletin.Card
	Sources     []bulletin.SourceArticle
}

// SendBulletinDigest mails the bulletin, using the expanded cards when they are available
// and the plain bullets otherwise.
func (e *EmailService) SendBulletinDigest(ctx context.Context, to string, b *bulletin.Bulletin, cards []bulletin.Card) error {
	if b == nil {
		return fmt.Errorf("no bulletin to send")
	}
	data := DigestData{
		CompanyName: e.config.CompanyName,
		BaseURL:     e.config.BaseURL,
		GeneratedAt: b.GeneratedAt.UTC().Format(time.RFC1123),
		Bullets:     b.Bullets,
		Cards:       cards,
		Sources:     b.SourceArticles,
	}

	htmlContent, err := e.renderTemplate("digest", data)
	if err != nil {
		return fmt.Errorf("failed to render digest template: %w", err)
	}

	subject := fmt.Sprintf("%s - Top stories of the last 24 hours", e.config.CompanyName)

	return e.sendEmail(to, subject, htmlContent)
}

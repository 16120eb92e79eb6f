// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
)

// NotificationService delivers the workflow's lifecycle events as mails to
// the contribuyente. It implements NotificationDispatcher.
type NotificationService struct {
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{
		config: cfg,
	}
}

func (s *NotificationService) RequestCreated(request *models.PatentRequest) error {
	data := map[string]interface{}{
		"Name":       request.User.Name,
		"Code":       request.Code,
		"Rut":        request.Rut,
		"Activity":   request.BusinessActivity,
		"RequestURL": s.requestURL(request),
	}

	tmpl := s.getEmailTemplate("request_created")
	return s.render(request.User.Email, tmpl, data)
}

func (s *NotificationService) RequestApproved(request *models.PatentRequest) error {
	data := map[string]interface{}{
		"Name":       request.User.Name,
		"Code":       request.Code,
		"RequestURL": s.requestURL(request),
	}

	tmpl := s.getEmailTemplate("request_approved")
	return s.render(request.User.Email, tmpl, data)
}

func (s *NotificationService) RequestRejected(request *models.PatentRequest) error {
	data := map[string]interface{}{
		"Name":       request.User.Name,
		"Code":       request.Code,
		"RequestURL": s.requestURL(request),
	}

	tmpl := s.getEmailTemplate("request_rejected")
	return s.render(request.User.Email, tmpl, data)
}

func (s *NotificationService) RequestRejectedWithObservations(request *models.PatentRequest) error {
	observations := ""
	if request.Observations != nil {
		observations = *request.Observations
	}

	data := map[string]interface{}{
		"Name":         request.User.Name,
		"Code":         request.Code,
		"Observations": observations,
		"RequestURL":   s.requestURL(request),
	}

	tmpl := s.getEmailTemplate("request_rejected_with_observations")
	return s.render(request.User.Email, tmpl, data)
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, resetToken string) error {
	data := map[string]interface{}{
		"Name":     user.Name,
		"ResetURL": fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, resetToken),
	}

	tmpl := s.getEmailTemplate("password_reset")
	return s.render(user.Email, tmpl, data)
}

func (s *NotificationService) requestURL(request *models.PatentRequest) string {
	return fmt.Sprintf("%s/contribuyente/patentes/%s", s.config.Frontend.BaseURL, request.Code)
}

// Helper methods

func (s *NotificationService) render(to string, tmpl EmailTemplate, data map[string]interface{}) error {
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(to, tmpl.Subject, body)
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if !s.config.Mail.Enabled || s.config.Mail.SMTPHost == "" {
		// Mail not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Mail delivery skipped (SMTP not configured)")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Mail.SMTPUsername, s.config.Mail.SMTPPassword, s.config.Mail.SMTPHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Mail.FromName, s.config.Mail.FromEmail, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Mail.SMTPHost, s.config.Mail.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Mail.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"request_created": {
			Subject: "Solicitud de patente comercial recibida",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hola {{.Name}},</h2>
	<p>Hemos recibido tu solicitud de patente comercial. Tu código de seguimiento es <strong>{{.Code}}</strong>.</p>
	<p>RUT: {{.Rut}}<br>Giro: {{.Activity}}</p>
	<p>Te notificaremos por este medio cuando sea revisada por el Departamento de Rentas.</p>
	<a href="{{.RequestURL}}">Ver estado de mi solicitud</a>
	<p>Ventanilla Única Municipal</p>
</body>
</html>`,
		},
		"request_approved": {
			Subject: "Solicitud de patente aprobada",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>¡Buenas noticias, {{.Name}}!</h2>
	<p>Tu solicitud <strong>{{.Code}}</strong> fue aprobada.</p>
	<p>Revisa en el portal los formularios y documentos requeridos para continuar el trámite.</p>
	<a href="{{.RequestURL}}">Ver documentos requeridos</a>
	<p>Ventanilla Única Municipal</p>
</body>
</html>`,
		},
		"request_rejected": {
			Subject: "Solicitud de patente rechazada",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hola {{.Name}},</h2>
	<p>Lamentamos informarte que tu solicitud <strong>{{.Code}}</strong> fue rechazada.</p>
	<p>Puedes acercarte al Departamento de Rentas para más información.</p>
	<a href="{{.RequestURL}}">Ver mi solicitud</a>
	<p>Ventanilla Única Municipal</p>
</body>
</html>`,
		},
		"request_rejected_with_observations": {
			Subject: "Solicitud de patente rechazada con observaciones",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hola {{.Name}},</h2>
	<p>Tu solicitud <strong>{{.Code}}</strong> fue rechazada con las siguientes observaciones:</p>
	<blockquote>{{.Observations}}</blockquote>
	<p>Corrige lo indicado y envía una nueva solicitud cuando estés listo.</p>
	<a href="{{.RequestURL}}">Ver mi solicitud</a>
	<p>Ventanilla Única Municipal</p>
</body>
</html>`,
		},
		"password_reset": {
			Subject: "Recuperación de contraseña",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hola {{.Name}},</h2>
	<p>Recibimos una solicitud para restablecer tu contraseña. Haz clic en el enlace para continuar:</p>
	<a href="{{.ResetURL}}">Restablecer contraseña</a>
	<p>Si no solicitaste este cambio, ignora este correo.</p>
	<p>Ventanilla Única Municipal</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notificación",
		Body:    "<p>{{.Message}}</p>",
	}
}

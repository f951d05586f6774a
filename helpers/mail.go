package helpers

import (
	"context"
	"io"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

type EmailData struct {
	EmailTo      string
	NameTo       string
	EmailFrom    string
	NameFrom     string
	Subject      string
	TemplatePath string
	FileName     string
	FileContent  []byte
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// BuildMessage renders the html template with data and attaches FileContent when present.
func (ed *EmailData) BuildMessage(data interface{}) (*gomail.Message, error) {
	body, err := ParseTemplate(ed.TemplatePath, data)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()

	if ed.FileContent != nil {
		m.Attach(ed.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ed.FileContent)
			return err
		}))
	}

	m.SetHeader("From", m.FormatAddress(ed.EmailFrom, ed.NameFrom))
	m.SetHeader("To", m.FormatAddress(ed.EmailTo, ed.NameTo))
	m.SetHeader("Subject", ed.Subject)
	m.SetBody("text/html", string(body))

	return m, nil
}

func (ed *EmailData) SendEmail(sender mailSender, data interface{}) error {
	m, err := ed.BuildMessage(data)
	if err != nil {
		return err
	}
	return sender.DialAndSend(m)
}

// Mailer sends receipt documents over SMTP.
type Mailer struct {
	Dialer         mailSender
	EmailFrom      string
	NameFrom       string
	ClientTemplate string
	AdminTemplate  string
}

func NewMailer(dialer *gomail.Dialer, emailFrom, nameFrom, clientTemplate, adminTemplate string) *Mailer {
	return &Mailer{
		Dialer:         dialer,
		EmailFrom:      emailFrom,
		NameFrom:       nameFrom,
		ClientTemplate: clientTemplate,
		AdminTemplate:  adminTemplate,
	}
}

// Deliver emails doc as an attachment. Retries are left to the caller.
func (m *Mailer) Deliver(ctx context.Context, d models.Delivery, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	templatePath := m.ClientTemplate
	if d.Kind == models.DeliveryAdminCopy {
		templatePath = m.AdminTemplate
	}

	ed := &EmailData{
		EmailTo:      d.To,
		NameTo:       d.Name,
		EmailFrom:    m.EmailFrom,
		NameFrom:     m.NameFrom,
		Subject:      d.Subject,
		TemplatePath: templatePath,
		FileName:     d.FileName,
		FileContent:  doc,
	}

	err := ed.SendEmail(m.Dialer, models.ReceiptMailHTML{
		Name:          d.Name,
		Email:         d.CustomerEmail,
		ReceiptNumber: d.ReceiptNumber,
		Amount:        d.Amount,
		Date:          d.Date,
		Mode:          d.Mode,
	})
	if err != nil {
		return errors.Wrapf(err, "failed sending receipt %s to %s", d.ReceiptNumber, d.To)
	}

	return nil
}

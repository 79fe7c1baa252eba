package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"mvr-docstatus/lib/scrapers/mvr"
	"mvr-docstatus/lib/textutil"
	"mvr-docstatus/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Config struct {
	Smtp SmtpConfig `json:"smtp"`
	// To defaults to the sender's own address.
	To []string `json:"to"`
}

func (c Config) Validate() error {
	if c.Smtp.Server == "" {
		return fmt.Errorf("notify: smtp server is not set")
	}
	if c.Smtp.Port <= 0 {
		return fmt.Errorf("notify: smtp port is not set")
	}
	if c.Smtp.EmailAddress == "" {
		return fmt.Errorf("notify: sender email address is not set")
	}
	return nil
}

func (c Config) recipients() []string {
	if len(c.To) > 0 {
		return c.To
	}
	return []string{c.Smtp.EmailAddress}
}

type Notifier struct {
	config Config
}

func NewNotifier(config Config) (Notifier, error) {
	err := config.Validate()
	if err != nil {
		return Notifier{}, err
	}
	return Notifier{config: config}, nil
}

// Message composes the email for a finished query.
func (n Notifier) Message(subjectID string, result mvr.QueryResult) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("MVR Document Status <%s>", n.config.Smtp.EmailAddress)
	mail.To = n.config.recipients()
	mail.Subject = fmt.Sprintf("Справка за документи: ЕГН %s", textutil.Mask(subjectID, 4))

	var body strings.Builder
	body.WriteString(result.StatusText)
	body.WriteString("\n\n")
	if !result.AsOf.IsZero() {
		fmt.Fprintf(&body, "Към дата: %s\n", result.AsOf.Format("02.01.2006"))
	}
	fmt.Fprintf(&body, "Опити: %d\n", result.Attempts)
	fmt.Fprintf(&body, "Проверено: %s\n", timezone.Now().Format("02.01.2006 15:04"))
	mail.Text = []byte(body.String())

	return mail
}

func (n Notifier) addr() string {
	return fmt.Sprintf("%s:%d", n.config.Smtp.Server, n.config.Smtp.Port)
}

// Send mails the status of a finished query to the configured recipients.
func (n Notifier) Send(ctx context.Context, subjectID string, result mvr.QueryResult) error {
	_, span := tracer.Start(ctx, "notify:Send")
	defer span.End()

	mail := n.Message(subjectID, result)
	err := mail.Send(
		n.addr(),
		smtp.PlainAuth("", n.config.Smtp.EmailAddress, n.config.Smtp.Password, n.config.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(n.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}

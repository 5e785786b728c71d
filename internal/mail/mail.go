package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/currency"
)

// Sender delivers billing mail. Implemented over SMTP in production and by a
// recorder in tests.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender sends plain-text mail through the configured relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	from string
}

// NewSMTPSender builds a sender from config. From is the billing address
// receipts are sent as.
func NewSMTPSender(cfg config.SMTPConfig, from string) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		to[0], s.from, subject, body,
	))
	return smtp.SendMail(addr, auth, s.from, to, msg)
}

var receiptSubjectTmpl = template.Must(template.New("subject").Parse(
	`Payment receipt{{if .Description}} for {{.Description}}{{end}}`,
))

var receiptBodyTmpl = template.Must(template.New("body").Parse(
	`Thank you for your payment.

Amount: {{.Symbol}}{{.Amount}} {{.CurrencyUpper}}
{{- if .Description}}
Description: {{.Description}}
{{- end}}

This charge will appear on your statement{{if .Statement}} as {{.Statement}}{{end}}.
`,
))

// ReceiptData carries the fields rendered into a payment receipt.
type ReceiptData struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Statement     string
	Symbol        string
	CurrencyUpper string
}

// RenderReceipt produces the subject and body for a charge receipt.
func RenderReceipt(data ReceiptData) (subject, body string, err error) {
	if data.Symbol == "" {
		data.Symbol = currency.Symbol(data.Currency)
	}
	if data.CurrencyUpper == "" {
		data.CurrencyUpper = strings.ToUpper(data.Currency)
	}
	var subjBuf, bodyBuf bytes.Buffer
	if err := receiptSubjectTmpl.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering receipt subject: %w", err)
	}
	if err := receiptBodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering receipt body: %w", err)
	}
	return subjBuf.String(), bodyBuf.String(), nil
}

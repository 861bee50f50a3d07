package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"text/template"

	"marketplace/internal/usecase"
)

const ReceiptSubject = "Thank you for your order!"

var ErrNoRecipient = errors.New("no recipient")

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Hi {{.BuyerName}},

Thank you for your order! We have received your payment.

Order number: {{.OrderNumber}}
Transaction ID: {{.PaymentID}}

{{range .Lines}}- {{.ProductName}}{{if .Variations}} ({{join .Variations ", "}}){{end}} x {{.Quantity}} @ {{.UnitPrice}} = {{.Subtotal}}
{{end}}
Amount paid: {{.AmountPaid}}
`))

// usecase.Notifierの実装
type ReceiptNotifier struct {
	mailer Mailer
}

func NewReceiptNotifier(mailer Mailer) *ReceiptNotifier {
	return &ReceiptNotifier{mailer: mailer}
}

func (n *ReceiptNotifier) SendReceipt(ctx context.Context, r usecase.Receipt) error {
	if strings.TrimSpace(r.To) == "" {
		return ErrNoRecipient
	}
	body, err := RenderReceipt(r)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, Message{
		To:      r.To,
		Subject: ReceiptSubject,
		Body:    body,
	})
}

func RenderReceipt(r usecase.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MailerMock struct{ mock.Mock }

func (m *MailerMock) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func sampleReceipt() usecase.Receipt {
	return usecase.Receipt{
		To:          "sita@example.com",
		BuyerName:   "Sita Sharma",
		OrderNumber: "202610151",
		PaymentID:   "ABC123",
		Lines: []usecase.ReceiptLine{
			{ProductName: "T-shirt", Variations: []string{"color: red", "size: M"}, Quantity: 2, UnitPrice: 500, Subtotal: 1000},
		},
		AmountPaid: 1020,
	}
}

func TestRenderReceipt(t *testing.T) {
	body, err := RenderReceipt(sampleReceipt())
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Sita Sharma,")
	assert.Contains(t, body, "Order number: 202610151")
	assert.Contains(t, body, "Transaction ID: ABC123")
	assert.Contains(t, body, "- T-shirt (color: red, size: M) x 2 @ 500 = 1000")
	assert.Contains(t, body, "Amount paid: 1020")
}

func TestReceiptNotifier_SendReceipt(t *testing.T) {
	m := new(MailerMock)
	m.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.To == "sita@example.com" && msg.Subject == ReceiptSubject
	})).Return(nil).Once()

	n := NewReceiptNotifier(m)
	require.NoError(t, n.SendReceipt(context.Background(), sampleReceipt()))
	m.AssertExpectations(t)
}

func TestReceiptNotifier_SendReceipt_MailerError(t *testing.T) {
	m := new(MailerMock)
	m.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	n := NewReceiptNotifier(m)
	err := n.SendReceipt(context.Background(), sampleReceipt())
	assert.EqualError(t, err, "smtp down")
}

func TestReceiptNotifier_SendReceipt_NoRecipient(t *testing.T) {
	m := new(MailerMock)
	n := NewReceiptNotifier(m)

	r := sampleReceipt()
	r.To = " "
	assert.ErrorIs(t, n.SendReceipt(context.Background(), r), ErrNoRecipient)
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestLogMailer_Send(t *testing.T) {
	l := NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, l.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Body: "b"}))
}

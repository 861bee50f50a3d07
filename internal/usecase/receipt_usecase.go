package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ReceiptUsecase struct {
	tx repo.TransactionManager
	//購入者が一致しない決済も探す（旧データ用）
	legacyLookup bool
	clock        Clock
	logger       *slog.Logger
}

func NewReceiptUsecase(tx repo.TransactionManager, legacyLookup bool, clock Clock, logger *slog.Logger) *ReceiptUsecase {
	return &ReceiptUsecase{
		tx:           tx,
		legacyLookup: legacyLookup,
		clock:        clock,
		logger:       logger,
	}
}

type ReceiptInput struct {
	OrderNumber   string
	TransactionID string
	//監査ログのactor。未ログインなら0
	RequesterID int64
}

type ReceiptItemOutput struct {
	ProductID   int64    `json:"product_id"`
	ProductName string   `json:"product_name"`
	Variations  []string `json:"variations"`
	Quantity    int64    `json:"quantity"`
	UnitPrice   int64    `json:"unit_price"`
	Subtotal    int64    `json:"subtotal"`
}

type ReceiptOrderOutput struct {
	ID           int64             `json:"id"`
	OrderNumber  string            `json:"order_number"`
	FullName     string            `json:"full_name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	AddressLine1 string            `json:"address_line_1"`
	AddressLine2 string            `json:"address_line_2"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	Country      string            `json:"country"`
	OrderNote    string            `json:"order_note"`
	Status       model.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

type ReceiptPaymentOutput struct {
	PaymentID     string              `json:"payment_id"`
	PaymentMethod string              `json:"payment_method"`
	AmountPaid    int64               `json:"amount_paid"`
	Status        model.PaymentStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

type ReceiptOutput struct {
	Order         ReceiptOrderOutput   `json:"order"`
	Payment       ReceiptPaymentOutput `json:"payment"`
	TransactionID string               `json:"transaction_id"`
	Items         []ReceiptItemOutput  `json:"items"`
	Subtotal      int64                `json:"subtotal"`
	Tax           decimal.Decimal      `json:"tax"`
	GrandTotal    decimal.Decimal      `json:"grand_total"`
}

// 注文完了ページのデータを組み立てる。
// 決済の紐付けが無ければ取引IDから探して紐付け直す
func (u *ReceiptUsecase) ResolveReceipt(ctx context.Context, in ReceiptInput) (ReceiptOutput, error) {
	ctx, span := tracer.Start(ctx, "receipt.ResolveReceipt",
		trace.WithAttributes(attribute.String("order.number", in.OrderNumber)))
	defer span.End()

	number := strings.TrimSpace(in.OrderNumber)
	txnID := strings.TrimSpace(in.TransactionID)
	if number == "" {
		return ReceiptOutput{}, notFoundError()
	}

	var out ReceiptOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindOrderedByNumber(ctx, number)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError()
		}
		if err != nil {
			return err
		}

		payment, err := u.findPayment(ctx, r, order, txnID, in.RequesterID)
		if err != nil {
			return err
		}

		items, err := r.OrderLineItems().ListDetailedByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}

		out = toReceiptOutput(order, payment, items)
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return ReceiptOutput{}, err
		}
		span.RecordError(err)
		u.logger.ErrorContext(ctx, "resolve receipt failed", "order_number", number, "error", err)
		return ReceiptOutput{}, dbError()
	}
	return out, nil
}

// 紐付け済み → 購入者の決済 → （旧データ用）誰の決済でも、の順に探す
func (u *ReceiptUsecase) findPayment(ctx context.Context, r repo.TxRepos, order model.Order, txnID string, requesterID int64) (model.Payment, error) {
	if order.PaymentRefID != nil {
		p, err := r.Payments().FindByID(ctx, *order.PaymentRefID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Payment{}, err
		}
	}

	if txnID == "" {
		return model.Payment{}, notFoundError()
	}

	p, err := r.Payments().FindLatestByPaymentIDAndUser(ctx, txnID, order.UserID)
	if errors.Is(err, repo.ErrNotFound) && u.legacyLookup {
		p, err = r.Payments().FindLatestByPaymentID(ctx, txnID)
		if err == nil {
			u.logger.WarnContext(ctx, "receipt matched payment of another buyer",
				"order_id", order.ID,
				"order_user_id", order.UserID,
				"payment_user_id", p.UserID,
				"payment_id", txnID,
			)
		}
	}
	if errors.Is(err, repo.ErrNotFound) {
		return model.Payment{}, notFoundError()
	}
	if err != nil {
		return model.Payment{}, err
	}

	//見つけた決済を注文と明細に紐付けて保存
	switch err := r.Orders().LinkPayment(ctx, order.ID, p.ID); {
	case errors.Is(err, repo.ErrAlreadyLinked):
		u.logger.WarnContext(ctx, "order already linked to another payment", "order_id", order.ID, "payment_id", txnID)
		return p, nil
	case err != nil:
		return model.Payment{}, err
	}
	if err := r.OrderLineItems().RelinkPayment(ctx, order.ID, p.ID); err != nil {
		return model.Payment{}, err
	}

	before, _ := json.Marshal(map[string]interface{}{"payment_ref_id": order.PaymentRefID})
	after, _ := json.Marshal(map[string]interface{}{"payment_ref_id": p.ID, "payment_id": p.PaymentID})
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  requesterID,
		Action:       model.AuditActionRelinkPayment,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   order.ID,
		BeforeJSON:   string(before),
		AfterJSON:    string(after),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return model.Payment{}, err
	}
	countRelink(ctx, p.UserID != order.UserID)
	return p, nil
}

func toReceiptOutput(order model.Order, payment model.Payment, items []model.OrderLineItem) ReceiptOutput {
	lines := make([]ReceiptItemOutput, 0, len(items))
	var subtotal int64
	for _, li := range items {
		vars := make([]string, 0, len(li.Variations))
		for _, v := range li.Variations {
			vars = append(vars, string(v.VariationCategory)+": "+v.VariationValue)
		}
		subtotal += li.Subtotal()
		lines = append(lines, ReceiptItemOutput{
			ProductID:   li.ProductID,
			ProductName: li.Product.Name,
			Variations:  vars,
			Quantity:    li.Quantity,
			UnitPrice:   li.ProductPrice,
			Subtotal:    li.Subtotal(),
		})
	}

	grand := decimal.NewFromInt(subtotal).Add(order.Tax)
	if order.OrderTotal.Valid {
		grand = order.OrderTotal.Decimal
	}

	return ReceiptOutput{
		Order: ReceiptOrderOutput{
			ID:           order.ID,
			OrderNumber:  order.NumberOrID(),
			FullName:     order.FullName(),
			Email:        order.Email,
			Phone:        order.Phone,
			AddressLine1: order.AddressLine1,
			AddressLine2: order.AddressLine2,
			City:         order.City,
			State:        order.State,
			Country:      order.Country,
			OrderNote:    order.OrderNote,
			Status:       order.Status,
			CreatedAt:    order.CreatedAt,
		},
		Payment: ReceiptPaymentOutput{
			PaymentID:     payment.PaymentID,
			PaymentMethod: payment.PaymentMethod,
			AmountPaid:    payment.AmountPaid,
			Status:        payment.Status,
			CreatedAt:     payment.CreatedAt,
		},
		TransactionID: payment.PaymentID,
		Items:         lines,
		Subtotal:      subtotal,
		Tax:           order.Tax,
		GrandTotal:    grand,
	}
}

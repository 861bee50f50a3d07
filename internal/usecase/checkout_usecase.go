package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderValidator interface {
	ValidateContact(in ContactInput) error
}

type CheckoutConfig struct {
	//税率(%)。2なら2%
	TaxRatePercent decimal.Decimal
	//success_url / failure_url の組み立てに使う
	PublicBaseURL string
	FormURL       string
}

type CheckoutUsecase struct {
	tx        repo.TransactionManager
	carts     repo.CartRepository
	orders    repo.OrderRepository
	validator OrderValidator
	signer    *gateway.Signer
	ids       IDGenerator
	clock     Clock
	cfg       CheckoutConfig
	logger    *slog.Logger
}

// DI
func NewCheckoutUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	orders repo.OrderRepository,
	validator OrderValidator,
	signer *gateway.Signer,
	ids IDGenerator,
	clock Clock,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		carts:     carts,
		orders:    orders,
		validator: validator,
		signer:    signer,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

type ContactInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Country      string `json:"country"`
	State        string `json:"state"`
	City         string `json:"city"`
	OrderNote    string `json:"order_note"`
}

type CartLineOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type PlaceOrderOutput struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Status      string           `json:"status"`
	Items       []CartLineOutput `json:"items"`
	Total       decimal.Decimal  `json:"total"`
	Tax         decimal.Decimal  `json:"tax"`
	GrandTotal  decimal.Decimal  `json:"grand_total"`
	CreatedAt   time.Time        `json:"created_at"`
}

// カートから未払いの注文を作る（明細はまだ作らない）
func (u *CheckoutUsecase) CreatePendingOrder(ctx context.Context, userID int64, in ContactInput, ip string) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cartItems, err := u.carts.ListItemsByUserID(ctx, userID)
	if err != nil {
		u.logger.ErrorContext(ctx, "list cart items failed", "user_id", userID, "error", err)
		return PlaceOrderOutput{}, dbError()
	}
	if len(cartItems) == 0 {
		return PlaceOrderOutput{}, kindError(http.StatusBadRequest, ErrEmptyCart)
	}

	if err := u.validator.ValidateContact(in); err != nil {
		return PlaceOrderOutput{}, err
	}

	//小計は現在の商品価格で計算する
	lines := make([]CartLineOutput, 0, len(cartItems))
	var sum int64
	for _, ci := range cartItems {
		sub := ci.Product.Price * ci.Quantity
		sum += sub
		lines = append(lines, CartLineOutput{
			ProductID: ci.ProductID,
			Name:      ci.Product.Name,
			Price:     ci.Product.Price,
			Quantity:  ci.Quantity,
			Subtotal:  sub,
		})
	}
	total := decimal.NewFromInt(sum)
	tax := total.Mul(u.cfg.TaxRatePercent).Div(decimal.NewFromInt(100)).Round(2)
	grand := total.Add(tax)

	now := u.clock.Now()
	order := model.Order{
		UserID:           userID,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.TrimSpace(in.Email),
		AddressLine1:     strings.TrimSpace(in.AddressLine1),
		AddressLine2:     strings.TrimSpace(in.AddressLine2),
		Country:          strings.TrimSpace(in.Country),
		State:            strings.TrimSpace(in.State),
		City:             strings.TrimSpace(in.City),
		OrderNote:        strings.TrimSpace(in.OrderNote),
		IP:               ip,
		OrderTotal:       decimal.NewNullDecimal(grand),
		Tax:              tax,
		IsOrdered:        false,
		Status:           model.OrderStatusPending,
		FulfillmentState: model.FulfillmentStatePending,
		CreatedAt:        now,
	}

	var (
		orderID int64
		number  string
	)
	//作成と採番は同じトランザクション（番号無しの注文を見せない）
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		n := now.Format("20060102") + strconv.FormatInt(id, 10)
		if err := r.Orders().AssignOrderNumber(ctx, id, n); err != nil {
			return err
		}
		orderID, number = id, n
		return nil
	})
	if err != nil {
		u.logger.ErrorContext(ctx, "create order failed", "user_id", userID, "error", err)
		return PlaceOrderOutput{}, dbError()
	}

	u.logger.InfoContext(ctx, "order placed",
		"order_id", orderID,
		"order_number", number,
		"user_id", userID,
		"grand_total", grand.String(),
	)

	return PlaceOrderOutput{
		OrderID:     orderID,
		OrderNumber: number,
		Status:      string(model.OrderStatusPending),
		Items:       lines,
		Total:       total,
		Tax:         tax,
		GrandTotal:  grand,
		CreatedAt:   now,
	}, nil
}

type PaymentStartOutput struct {
	FormURL string                 `json:"form_url"`
	Request gateway.PaymentRequest `json:"fields"`
}

// 決済画面へ自動送信する署名付きフォームを作る
func (u *CheckoutUsecase) BuildPaymentRequest(ctx context.Context, userID int64, orderID int64) (PaymentStartOutput, error) {
	if userID <= 0 {
		return PaymentStartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentStartOutput{}, notFoundError()
	}

	order, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentStartOutput{}, notFoundError()
	}
	if err != nil {
		return PaymentStartOutput{}, dbError()
	}
	if order.IsOrdered {
		return PaymentStartOutput{}, NewHTTPError(http.StatusConflict, "order already paid")
	}

	var total int64
	if order.OrderTotal.Valid {
		total = order.OrderTotal.Decimal.Round(0).IntPart()
	}
	tax := order.Tax.Round(0).IntPart()
	amount := total - tax
	if amount < 0 {
		amount = total
	}

	txnUUID := gateway.TransactionUUID(order.NumberOrID(), u.ids.NewID())
	returnURL := strings.TrimRight(u.cfg.PublicBaseURL, "/") + fmt.Sprintf("/orders/%d/esewa/return", order.ID)

	req := u.signer.BuildRequest(gateway.PaymentRequestInput{
		Amount:          amount,
		TaxAmount:       tax,
		TotalAmount:     total,
		TransactionUUID: txnUUID,
		SuccessURL:      returnURL,
		FailureURL:      returnURL,
	})

	//コールバックで突き合わせるため保存
	if err := u.orders.SaveGatewayRequest(ctx, order.ID, txnUUID, total); err != nil {
		u.logger.ErrorContext(ctx, "save gateway request failed", "order_id", order.ID, "error", err)
		return PaymentStartOutput{}, dbError()
	}

	u.logger.InfoContext(ctx, "payment request built",
		"order_id", order.ID,
		"transaction_uuid", txnUUID,
		"total_amount", total,
	)

	return PaymentStartOutput{FormURL: u.cfg.FormURL, Request: req}, nil
}

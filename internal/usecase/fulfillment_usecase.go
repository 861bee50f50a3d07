package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("marketplace/internal/usecase")

// メール失敗時に購入者へ見せる文言
const NotificationWarning = "Order received, but we couldn't send the email."

type FulfillmentConfig struct {
	//決済が取引コードを返さないときの接頭辞（"esewa-<order id>"）
	GatewayName   string
	PaymentMethod string
	//注文完了ページのパス
	ReceiptPath string
}

type FulfillmentUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	users    repo.UserRepository
	signer   *gateway.Signer
	notifier Notifier
	lock     CallbackLock
	clock    Clock
	cfg      FulfillmentConfig
	logger   *slog.Logger
}

// DI。lockはnilでもよい
func NewFulfillmentUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	signer *gateway.Signer,
	notifier Notifier,
	lock CallbackLock,
	clock Clock,
	cfg FulfillmentConfig,
	logger *slog.Logger,
) *FulfillmentUsecase {
	if cfg.GatewayName == "" {
		cfg.GatewayName = gateway.Name
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = "eSewa"
	}
	if cfg.ReceiptPath == "" {
		cfg.ReceiptPath = "/order-complete"
	}
	return &FulfillmentUsecase{
		tx:       tx,
		orders:   orders,
		users:    users,
		signer:   signer,
		notifier: notifier,
		lock:     lock,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

type CallbackOutput struct {
	OrderNumber string   `json:"order_number"`
	PaymentID   string   `json:"payment_id"`
	RedirectURL string   `json:"redirect_url"`
	Warnings    []string `json:"warnings,omitempty"`
	//すでに確定済みだった（重複コールバック）
	Replayed bool `json:"replayed"`
}

// トランザクションの結果
type fulfillResult struct {
	order        model.Order
	payment      model.Payment
	items        []model.OrderLineItem
	fulfilledNow bool
}

// 決済完了コールバックを処理して注文を確定する。
// 何度呼ばれても在庫・明細・決済は1回分しか作らない
func (u *FulfillmentUsecase) HandleCallback(ctx context.Context, userID int64, orderID int64, rawPayload string) (CallbackOutput, error) {
	ctx, span := tracer.Start(ctx, "fulfillment.HandleCallback",
		trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if userID <= 0 {
		return CallbackOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return CallbackOutput{}, notFoundError()
	}

	//他人の注文は存在しない扱い
	order, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CallbackOutput{}, notFoundError()
	}
	if err != nil {
		u.logger.ErrorContext(ctx, "find order failed", "order_id", orderID, "error", err)
		return CallbackOutput{}, dbError()
	}

	cb, err := u.signer.VerifyCallback(rawPayload)
	if err != nil {
		u.logger.WarnContext(ctx, "callback rejected", "order_id", orderID, "error", err)
		countCallback(ctx, outcomeRejected)
		if errors.Is(err, gateway.ErrMalformed) {
			return CallbackOutput{}, notCompletedError(fmt.Errorf("%w: %w", ErrMalformedCallback, err))
		}
		return CallbackOutput{}, notCompletedError(err)
	}
	if !cb.IsComplete() {
		u.logger.InfoContext(ctx, "payment not completed", "order_id", orderID, "status", cb.Status)
		countCallback(ctx, outcomeNotCompleted)
		return CallbackOutput{}, notCompletedError(nil)
	}
	if err := cb.MatchesRequest(order.NumberOrID(), order.GatewayTotalAmount); err != nil {
		u.logger.WarnContext(ctx, "callback does not match payment request", "order_id", orderID, "error", err)
		countCallback(ctx, outcomeRejected)
		return CallbackOutput{}, notCompletedError(err)
	}

	release := u.acquireLock(ctx, orderID)
	defer release()

	var res fulfillResult
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		out, err := u.fulfill(ctx, r, userID, orderID, cb)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fulfillment failed")
		countCallback(ctx, outcomeFailed)
		if _, ok := AsHTTPError(err); ok {
			return CallbackOutput{}, err
		}
		u.logger.ErrorContext(ctx, "fulfillment failed", "order_id", orderID, "error", err)
		return CallbackOutput{}, dbError()
	}

	out := CallbackOutput{
		OrderNumber: res.order.NumberOrID(),
		PaymentID:   res.payment.PaymentID,
		Replayed:    !res.fulfilledNow,
	}
	span.SetAttributes(
		attribute.String("order.number", out.OrderNumber),
		attribute.Bool("callback.replayed", out.Replayed),
	)

	if res.fulfilledNow {
		u.logger.InfoContext(ctx, "order fulfilled",
			"order_id", res.order.ID,
			"order_number", out.OrderNumber,
			"payment_id", out.PaymentID,
			"line_items", len(res.items),
		)
		countCallback(ctx, outcomeFulfilled)
		//コミット後に送る。失敗しても注文は確定のまま
		if err := u.sendReceipt(ctx, res); err != nil {
			out.Warnings = append(out.Warnings, NotificationWarning)
		}
	} else {
		u.logger.InfoContext(ctx, "duplicate callback", "order_id", res.order.ID, "payment_id", out.PaymentID)
		countCallback(ctx, outcomeReplayed)
	}

	q := url.Values{}
	q.Set("order_number", out.OrderNumber)
	q.Set("payment_id", out.PaymentID)
	out.RedirectURL = u.cfg.ReceiptPath + "?" + q.Encode()

	return out, nil
}

// トランザクション内の処理（決済→明細→在庫→カート→注文）
func (u *FulfillmentUsecase) fulfill(ctx context.Context, r repo.TxRepos, userID int64, orderID int64, cb gateway.Callback) (fulfillResult, error) {
	//同じ注文のコールバックはここで直列になる
	order, err := r.Orders().LockByIDForUser(ctx, orderID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return fulfillResult{}, notFoundError()
	}
	if err != nil {
		return fulfillResult{}, err
	}

	existing, err := r.OrderLineItems().ListByOrderID(ctx, order.ID)
	if err != nil {
		return fulfillResult{}, err
	}

	paymentID := cb.TransactionCode
	if paymentID == "" {
		paymentID = u.cfg.GatewayName + "-" + strconv.FormatInt(order.ID, 10)
	}
	amount := OrderAmount(order, existing)
	if amount == 0 && len(existing) == 0 {
		//合計未保存の古い注文はカートから計算する
		cartItems, err := r.Carts().ListItemsByUserID(ctx, order.UserID)
		if err != nil {
			return fulfillResult{}, err
		}
		for _, ci := range cartItems {
			amount += ci.Product.Price * ci.Quantity
		}
	}
	payment, err := u.resolvePayment(ctx, r, order, model.Payment{
		UserID:        order.UserID,
		PaymentID:     paymentID,
		PaymentMethod: u.cfg.PaymentMethod,
		AmountPaid:    amount,
		Status:        model.PaymentStatusCompleted,
	})
	if err != nil {
		return fulfillResult{}, err
	}

	claimed, err := r.Orders().ClaimMaterialization(ctx, order.ID)
	if err != nil {
		return fulfillResult{}, err
	}
	//古いデータで状態がPENDINGのまま明細だけある場合も作り直さない
	if claimed && len(existing) == 0 {
		if err := u.materialize(ctx, r, order, payment); err != nil {
			return fulfillResult{}, err
		}
	} else {
		if err := r.OrderLineItems().RelinkPayment(ctx, order.ID, payment.ID); err != nil {
			return fulfillResult{}, err
		}
	}

	switch err := r.Orders().LinkPayment(ctx, order.ID, payment.ID); {
	case errors.Is(err, repo.ErrAlreadyLinked):
		u.logger.WarnContext(ctx, "order already linked to another payment",
			"order_id", order.ID,
			"payment_id", paymentID,
		)
	case err != nil:
		return fulfillResult{}, err
	default:
		if order.PaymentRefID == nil {
			pid := payment.ID
			order.PaymentRefID = &pid
		}
	}

	fulfilledNow := false
	if !order.IsOrdered {
		if err := r.Orders().MarkFulfilled(ctx, order.ID); err != nil {
			return fulfillResult{}, err
		}
		if err := r.AuditLogs().Create(ctx, fulfillAudit(order, payment, u.clock)); err != nil {
			return fulfillResult{}, err
		}
		order.IsOrdered = true
		order.Status = model.OrderStatusAccepted
		fulfilledNow = true
	}

	items, err := r.OrderLineItems().ListDetailedByOrderID(ctx, order.ID)
	if err != nil {
		return fulfillResult{}, err
	}

	return fulfillResult{
		order:        order,
		payment:      payment,
		items:        items,
		fulfilledNow: fulfilledNow,
	}, nil
}

// 注文に紐づく決済があればそれを使う。
// 別のtransaction_codeで再送されても2件目の決済は作らない
func (u *FulfillmentUsecase) resolvePayment(ctx context.Context, r repo.TxRepos, order model.Order, want model.Payment) (model.Payment, error) {
	if order.PaymentRefID != nil {
		linked, err := r.Payments().FindByID(ctx, *order.PaymentRefID)
		switch {
		case err == nil:
			if linked.PaymentID != want.PaymentID {
				u.logger.WarnContext(ctx, "callback for linked order carries a different transaction code",
					"order_id", order.ID,
					"linked_payment_id", linked.PaymentID,
					"payment_id", want.PaymentID,
				)
			}
			return linked, nil
		case !errors.Is(err, repo.ErrNotFound):
			return model.Payment{}, err
		}
		u.logger.WarnContext(ctx, "linked payment missing", "order_id", order.ID, "payment_ref_id", *order.PaymentRefID)
	}

	payment, created, err := r.Payments().GetOrCreate(ctx, want)
	if err != nil {
		return model.Payment{}, err
	}
	if !created {
		u.logger.DebugContext(ctx, "payment already recorded", "order_id", order.ID, "payment_id", want.PaymentID)
	}
	return payment, nil
}

// カート明細を注文明細にして在庫を減らし、カートを空にする
func (u *FulfillmentUsecase) materialize(ctx context.Context, r repo.TxRepos, order model.Order, payment model.Payment) error {
	cartItems, err := r.Carts().ListItemsByUserID(ctx, order.UserID)
	if err != nil {
		return err
	}
	if len(cartItems) == 0 {
		u.logger.WarnContext(ctx, "no cart items to materialize", "order_id", order.ID, "user_id", order.UserID)
		return nil
	}

	paymentRefID := payment.ID
	lines := make([]model.OrderLineItem, 0, len(cartItems))
	for _, ci := range cartItems {
		lines = append(lines, model.OrderLineItem{
			OrderID:      order.ID,
			CartItemID:   ci.ID,
			PaymentRefID: &paymentRefID,
			UserID:       order.UserID,
			ProductID:    ci.ProductID,
			Quantity:     ci.Quantity,
			ProductPrice: ci.Product.Price,
			Ordered:      true,
			Variations:   ci.Variations,
		})
	}
	if err := r.OrderLineItems().CreateBulk(ctx, order.ID, lines); err != nil {
		return err
	}

	orderID := order.ID
	for _, li := range lines {
		remaining, err := r.Inventory().Decrement(ctx, li.ProductID, li.Quantity)
		if errors.Is(err, repo.ErrNotFound) {
			u.logger.ErrorContext(ctx, "product missing during fulfillment", "order_id", order.ID, "product_id", li.ProductID)
			return NewHTTPError(http.StatusConflict, "product not found")
		}
		if err != nil {
			return err
		}
		//在庫不足でも支払い済みなので止めない
		if remaining < 0 {
			u.logger.WarnContext(ctx, "product oversold",
				"order_id", order.ID,
				"product_id", li.ProductID,
				"stock", remaining,
			)
		}
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   li.ProductID,
			ActorUserID: order.UserID,
			OrderID:     &orderID,
			Delta:       -li.Quantity,
			Reason:      "order " + order.NumberOrID(),
		}); err != nil {
			return err
		}
	}

	return r.Carts().ClearByUserID(ctx, order.UserID)
}

func (u *FulfillmentUsecase) acquireLock(ctx context.Context, orderID int64) func() {
	if u.lock == nil {
		return func() {}
	}
	release, err := u.lock.Acquire(ctx, "fulfillment:order:"+strconv.FormatInt(orderID, 10))
	if err != nil {
		//DBの行ロックがあるので続行する
		u.logger.WarnContext(ctx, "callback lock unavailable", "order_id", orderID, "error", err)
		return func() {}
	}
	return release
}

func (u *FulfillmentUsecase) sendReceipt(ctx context.Context, res fulfillResult) error {
	if u.notifier == nil {
		return nil
	}

	to := res.order.Email
	name := res.order.FullName()
	user, err := u.users.FindByID(ctx, res.order.UserID)
	if err != nil {
		u.logger.WarnContext(ctx, "load buyer failed", "user_id", res.order.UserID, "error", err)
	}
	if user != nil {
		if user.Email != "" {
			to = user.Email
		}
		if name == "" {
			name = user.FullName()
		}
	}

	receipt := Receipt{
		To:          to,
		BuyerName:   name,
		OrderNumber: res.order.NumberOrID(),
		PaymentID:   res.payment.PaymentID,
		Lines:       receiptLines(res.items),
		AmountPaid:  OrderAmount(res.order, res.items),
		PlacedAt:    res.order.CreatedAt,
	}
	if err := u.notifier.SendReceipt(ctx, receipt); err != nil {
		u.logger.WarnContext(ctx, "receipt notification failed",
			"order_id", res.order.ID,
			"to", to,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return nil
}

// 注文の支払額。order_totalがあればその四捨五入、無ければ明細の合計
func OrderAmount(order model.Order, items []model.OrderLineItem) int64 {
	if order.OrderTotal.Valid && !order.OrderTotal.Decimal.IsZero() {
		return order.OrderTotal.Decimal.Round(0).IntPart()
	}
	var sum int64
	for _, li := range items {
		sum += li.Subtotal()
	}
	return sum
}

func receiptLines(items []model.OrderLineItem) []ReceiptLine {
	lines := make([]ReceiptLine, 0, len(items))
	for _, li := range items {
		vars := make([]string, 0, len(li.Variations))
		for _, v := range li.Variations {
			vars = append(vars, string(v.VariationCategory)+": "+v.VariationValue)
		}
		lines = append(lines, ReceiptLine{
			ProductName: li.Product.Name,
			Variations:  vars,
			Quantity:    li.Quantity,
			UnitPrice:   li.ProductPrice,
			Subtotal:    li.Subtotal(),
		})
	}
	return lines
}

type orderAuditSnapshot struct {
	Status    model.OrderStatus `json:"status"`
	IsOrdered bool              `json:"is_ordered"`
	PaymentID string            `json:"payment_id,omitempty"`
}

func fulfillAudit(order model.Order, payment model.Payment, clock Clock) model.AuditLog {
	before, _ := json.Marshal(orderAuditSnapshot{Status: order.Status, IsOrdered: order.IsOrdered})
	after, _ := json.Marshal(orderAuditSnapshot{
		Status:    model.OrderStatusAccepted,
		IsOrdered: true,
		PaymentID: payment.PaymentID,
	})
	return model.AuditLog{
		ActorUserID:  order.UserID,
		Action:       model.AuditActionFulfillOrder,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   order.ID,
		BeforeJSON:   string(before),
		AfterJSON:    string(after),
		CreatedAt:    clock.Now(),
	}
}

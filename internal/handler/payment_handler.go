package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	paymentNotCompletedMessage = "eSewa: Payment was not completed."
	orderNotFoundMessage       = "Order not found."
	fulfillmentFailedMessage   = "We couldn't confirm your order. Please contact support."
)

type FulfillmentService interface {
	HandleCallback(ctx context.Context, userID int64, orderID int64, rawPayload string) (usecase.CallbackOutput, error)
}

// 決済画面からの戻り先
type PaymentHandler struct {
	uc      FulfillmentService
	homeURL string
}

func NewPaymentHandler(uc FulfillmentService, homeURL string) *PaymentHandler {
	return &PaymentHandler{uc: uc, homeURL: homeURL}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("/:id/esewa/return", h.callback)
	g.POST("/:id/esewa/return", h.callback)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Redirect(http.StatusSeeOther, withMessage(h.homeURL, "error", orderNotFoundMessage))
	}

	//クエリでもフォームでも受ける
	raw := c.FormValue("data")
	if raw == "" {
		raw = c.FormValue("response")
	}

	out, err := h.uc.HandleCallback(c.Request().Context(), userID, orderID, raw)
	if err != nil {
		return h.redirectWithError(c, err)
	}

	target := out.RedirectURL
	for _, w := range out.Warnings {
		target = withMessage(target, "warning", w)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// 購入者はブラウザで戻ってくるので、失敗もJSONではなくトップへ戻す
func (h *PaymentHandler) redirectWithError(c echo.Context, err error) error {
	msg := fulfillmentFailedMessage
	switch {
	case errors.Is(err, usecase.ErrPaymentNotCompleted):
		msg = paymentNotCompletedMessage
	case errors.Is(err, usecase.ErrNotFound):
		msg = orderNotFoundMessage
	default:
		if he, ok := usecase.AsHTTPError(err); ok && he.Status == http.StatusUnauthorized {
			return writeError(c, err)
		}
		slog.ErrorContext(c.Request().Context(), "fulfillment failed", "order_id", c.Param("id"), "error", err)
	}
	return c.Redirect(http.StatusSeeOther, withMessage(h.homeURL, "error", msg))
}

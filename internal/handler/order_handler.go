package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutService interface {
	CreatePendingOrder(ctx context.Context, userID int64, in usecase.ContactInput, ip string) (usecase.PlaceOrderOutput, error)
	BuildPaymentRequest(ctx context.Context, userID int64, orderID int64) (usecase.PaymentStartOutput, error)
}

type OrderHandler struct {
	uc       CheckoutService
	storeURL string
}

func NewOrderHandler(uc CheckoutService, storeURL string) *OrderHandler {
	return &OrderHandler{uc: uc, storeURL: storeURL}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/place", h.place)
	g.GET("/:id/esewa", h.startPayment)
}

func (h *OrderHandler) place(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.ContactInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreatePendingOrder(c.Request().Context(), userID, req, c.RealIP())
	if errors.Is(err, usecase.ErrEmptyCart) {
		//カートが空なら商品一覧へ戻す
		return c.Redirect(http.StatusSeeOther, h.storeURL)
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) startPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.BuildPaymentRequest(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

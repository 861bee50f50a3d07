package handler

import (
	"context"
	"errors"
	"net/http"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReceiptService interface {
	ResolveReceipt(ctx context.Context, in usecase.ReceiptInput) (usecase.ReceiptOutput, error)
}

type ReceiptHandler struct {
	uc      ReceiptService
	homeURL string
}

func NewReceiptHandler(uc ReceiptService, homeURL string) *ReceiptHandler {
	return &ReceiptHandler{uc: uc, homeURL: homeURL}
}

func (h *ReceiptHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/order-complete", h.complete,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)
}

func (h *ReceiptHandler) complete(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.ResolveReceipt(c.Request().Context(), usecase.ReceiptInput{
		OrderNumber:   c.QueryParam("order_number"),
		TransactionID: c.QueryParam("payment_id"),
		RequesterID:   userID,
	})
	if errors.Is(err, usecase.ErrNotFound) {
		return c.Redirect(http.StatusSeeOther, h.homeURL)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

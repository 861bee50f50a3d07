package server

import (
	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Receipts *handler.ReceiptHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	h.Orders.RegisterRoutes(e, cfg, userRepo)
	h.Payments.RegisterRoutes(e, cfg, userRepo)
	h.Receipts.RegisterRoutes(e, cfg, userRepo)
}

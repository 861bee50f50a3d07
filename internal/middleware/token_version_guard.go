package middleware

import (
	"log/slog"
	"net/http"

	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後ろに置く。
// ログアウト等でtoken_versionが上がったトークンと、停止中のユーザーを弾く
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			buyer, ok := BuyerFromContext(c)
			if !ok {
				return unauthorized(c)
			}

			user, err := users.FindByID(c.Request().Context(), buyer.ID)
			if err != nil {
				slog.ErrorContext(c.Request().Context(), "find user failed", "user_id", buyer.ID, "error", err)
				return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
			if user == nil || !user.IsActive || user.TokenVersion != buyer.TokenVersion {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const defaultRole = "USER"

const buyerKey = "buyer"

// リクエストしてきた購入者。AuthJWTがcontextに入れる
type Buyer struct {
	ID           int64
	Role         string
	TokenVersion int
}

func SetBuyer(c echo.Context, b Buyer) {
	c.Set(buyerKey, b)
}

func BuyerFromContext(c echo.Context) (Buyer, bool) {
	b, ok := c.Get(buyerKey).(Buyer)
	if !ok || b.ID <= 0 {
		return Buyer{}, false
	}
	return b, true
}

// 検証だけする。トークンの発行は認証側の仕事
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
	)
	key := []byte(cfg.JWTSecret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c)
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				return unauthorized(c)
			}

			buyer, err := buyerFromClaims(claims)
			if err != nil {
				return unauthorized(c)
			}

			SetBuyer(c, buyer)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// sub(必須)・tv(必須)・role(任意、無ければUSER)
func buyerFromClaims(claims jwt.MapClaims) (Buyer, error) {
	id, err := claimInt(claims["sub"], 64)
	if err != nil || id <= 0 {
		return Buyer{}, errors.New("invalid sub")
	}

	tv, err := claimInt(claims["tv"], 32)
	if err != nil || tv < 0 {
		return Buyer{}, errors.New("invalid tv")
	}

	role := defaultRole
	if raw, ok := claims["role"]; ok {
		s, ok := raw.(string)
		if !ok || s == "" {
			return Buyer{}, errors.New("invalid role")
		}
		role = s
	}

	return Buyer{ID: id, Role: role, TokenVersion: int(tv)}, nil
}

// 発行側によって数値のことも文字列のこともある
func claimInt(v interface{}, bitSize int) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return strconv.ParseInt(t.String(), 10, bitSize)
	case string:
		return strconv.ParseInt(t, 10, bitSize)
	default:
		return 0, fmt.Errorf("unexpected claim type %T", v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

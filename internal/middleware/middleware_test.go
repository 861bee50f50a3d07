package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func newProtected(userRepo repository.UserRepository) *echo.Echo {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	mws := []echo.MiddlewareFunc{AuthJWT(cfg)}
	if userRepo != nil {
		mws = append(mws, TokenVersionGuard(userRepo))
	}
	e.GET("/protected", func(c echo.Context) error {
		b, ok := BuyerFromContext(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, mwOKResponse{
			UserID:       b.ID,
			Role:         b.Role,
			TokenVersion: b.TokenVersion,
		})
	}, mws...)
	return e
}

func runRequest(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT_Unauthorized(t *testing.T) {
	e := newProtected(nil)
	wrongAlg := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": 1, "tv": 0}, jwt.SigningMethodHS512)
	wrongSecret := mustMakeJWT(t, "other", jwt.MapClaims{"sub": 1, "tv": 0}, jwt.SigningMethodHS256)
	noSub := mustMakeJWT(t, "test-secret", jwt.MapClaims{"tv": 0}, jwt.SigningMethodHS256)
	noTV := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": 1}, jwt.SigningMethodHS256)
	badRole := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": 1, "tv": 0, "role": 5}, jwt.SigningMethodHS256)
	expired := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": 1, "tv": 0, "exp": 1000}, jwt.SigningMethodHS256)

	cases := map[string]string{
		"no header":    "",
		"bad scheme":   "Token abc.def.ghi",
		"empty token":  "Bearer ",
		"wrong alg":    "Bearer " + wrongAlg,
		"wrong secret": "Bearer " + wrongSecret,
		"no sub":       "Bearer " + noSub,
		"no tv":        "Bearer " + noTV,
		"bad role":     "Bearer " + badRole,
		"expired":      "Bearer " + expired,
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			rec := runRequest(e, h)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		})
	}
}

func TestAuthJWT_OK_DefaultRole(t *testing.T) {
	e := newProtected(nil)
	tok := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": "42", "tv": 3}, jwt.SigningMethodHS256)

	rec := runRequest(e, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 3, body.TokenVersion)
}

func TestTokenVersionGuard(t *testing.T) {
	tok := mustMakeJWT(t, "test-secret", jwt.MapClaims{"sub": 7, "role": "USER", "tv": 1}, jwt.SigningMethodHS256)

	t.Run("match", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, TokenVersion: 1, IsActive: true}, nil).Once()

		rec := runRequest(newProtected(repo), "Bearer "+tok)
		assert.Equal(t, http.StatusOK, rec.Code)
		repo.AssertExpectations(t)
	})

	t.Run("version changed", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, TokenVersion: 2, IsActive: true}, nil).Once()

		rec := runRequest(newProtected(repo), "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, TokenVersion: 1, IsActive: false}, nil).Once()

		rec := runRequest(newProtected(repo), "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, int64(7)).Return(nil, nil).Once()

		rec := runRequest(newProtected(repo), "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("db error", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, int64(7)).Return(nil, errors.New("conn reset")).Once()

		rec := runRequest(newProtected(repo), "Bearer "+tok)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}

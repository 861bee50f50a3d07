package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類。errors.Isで判定する
var (
	ErrEmptyCart           = errors.New("cart empty")
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrMalformedCallback   = errors.New("malformed callback")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	//メール送信失敗。注文自体は成功している
	ErrNotificationFailed = errors.New("notification failed")
)

type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindError(status int, kind error) error {
	return &HTTPError{
		Status:  status,
		Message: kind.Error(),
		Kind:    kind,
	}
}

// 入力項目の検証エラー
func NewValidationError(field string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "invalid " + field,
		Kind:    ErrValidation,
	}
}

func notFoundError() error {
	return kindError(http.StatusNotFound, ErrNotFound)
}

func dbError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

// 決済未完了。causeがあれば一緒に包む
func notCompletedError(cause error) error {
	kind := ErrPaymentNotCompleted
	if cause != nil {
		kind = fmt.Errorf("%w: %w", ErrPaymentNotCompleted, cause)
	}
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: ErrPaymentNotCompleted.Error(),
		Kind:    kind,
	}
}

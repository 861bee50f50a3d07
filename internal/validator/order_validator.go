package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"marketplace/internal/usecase"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\- ]*$`)
)

type orderValidator struct{}

// Usecaseは interface を依存注入
func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

// 注文フォームの連絡先を検証
func (v *orderValidator) ValidateContact(in usecase.ContactInput) error {
	required := []struct {
		field string
		value string
		max   int
	}{
		{"first_name", in.FirstName, 50},
		{"last_name", in.LastName, 50},
		{"phone", in.Phone, 15},
		{"email", in.Email, 100},
		{"address_line_1", in.AddressLine1, 100},
		{"country", in.Country, 50},
		{"state", in.State, 50},
		{"city", in.City, 50},
	}
	for _, f := range required {
		s := strings.TrimSpace(f.value)
		if s == "" || utf8.RuneCountInString(s) > f.max {
			return usecase.NewValidationError(f.field)
		}
	}

	// 任意項目は長さだけ
	if utf8.RuneCountInString(in.AddressLine2) > 100 {
		return usecase.NewValidationError("address_line_2")
	}
	if utf8.RuneCountInString(in.OrderNote) > 100 {
		return usecase.NewValidationError("order_note")
	}

	if !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		return usecase.NewValidationError("email")
	}
	if !phoneRe.MatchString(strings.TrimSpace(in.Phone)) {
		return usecase.NewValidationError("phone")
	}
	return nil
}

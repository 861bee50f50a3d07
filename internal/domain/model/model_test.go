package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_NumberOrID(t *testing.T) {
	num := "2026101542"
	empty := ""

	assert.Equal(t, "2026101542", Order{ID: 42, OrderNumber: &num}.NumberOrID())
	assert.Equal(t, "42", Order{ID: 42, OrderNumber: &empty}.NumberOrID())
	assert.Equal(t, "42", Order{ID: 42}.NumberOrID())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Sita Sharma", Order{FirstName: "Sita", LastName: "Sharma"}.FullName())
	assert.Equal(t, "", Order{}.FullName())
	assert.Equal(t, "Sita", User{FirstName: "Sita"}.FullName())
	assert.Equal(t, "Sharma", User{LastName: "Sharma"}.FullName())
}

func TestOrderLineItem_Subtotal(t *testing.T) {
	assert.Equal(t, int64(1500), OrderLineItem{ProductPrice: 500, Quantity: 3}.Subtotal())
}

package usecase_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/testutil"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID struct{ id string }

func (g fixedID) NewID() string { return g.id }

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) SendReceipt(ctx context.Context, r usecase.Receipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 実DB(SQLite)で usecase を組み立てる
type testEnv struct {
	db       *gorm.DB
	notifier *NotifierMock
	checkout *usecase.CheckoutUsecase
	fulfill  *usecase.FulfillmentUsecase
	receipts *usecase.ReceiptUsecase
}

func newTestEnv(t *testing.T, legacyLookup bool) *testEnv {
	t.Helper()

	gdb := testutil.NewSQLiteDB(t)
	txm := infraRepo.NewTxManagerGorm(gdb)
	orders := infraRepo.NewOrderGormRepository(gdb)
	carts := infraRepo.NewCartGormRepository(gdb)
	users := infraRepo.NewUserGormRepository(gdb)
	signer := gateway.NewSigner("test-secret", "EPAYTEST")
	clock := fixedClock{t: testNow}
	notifier := new(NotifierMock)

	return &testEnv{
		db:       gdb,
		notifier: notifier,
		checkout: usecase.NewCheckoutUsecase(txm, carts, orders, validator.NewOrderValidator(), signer,
			fixedID{id: "3f2a9c1b-77aa-4bbb-8ccc-000000000000"}, clock,
			usecase.CheckoutConfig{
				TaxRatePercent: decimal.NewFromInt(2),
				PublicBaseURL:  "https://shop.example",
				FormURL:        "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
			}, discardLogger()),
		fulfill: usecase.NewFulfillmentUsecase(txm, orders, users, signer, notifier, nil, clock,
			usecase.FulfillmentConfig{}, discardLogger()),
		receipts: usecase.NewReceiptUsecase(txm, legacyLookup, clock, discardLogger()),
	}
}

func validContact() usecase.ContactInput {
	return usecase.ContactInput{
		FirstName:    "Sita",
		LastName:     "Sharma",
		Phone:        "9800000000",
		Email:        "sita@example.com",
		AddressLine1: "Thamel 12",
		Country:      "Nepal",
		State:        "Bagmati",
		City:         "Kathmandu",
	}
}

func encodeCallback(t *testing.T, fields map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func completeCallback(t *testing.T, code string) string {
	return encodeCallback(t, map[string]interface{}{"status": "COMPLETE", "transaction_code": code})
}

func loadOrder(t *testing.T, gdb *gorm.DB, id int64) model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, gdb.First(&o, id).Error)
	return o
}

func loadProduct(t *testing.T, gdb *gorm.DB, id int64) model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, gdb.Unscoped().First(&p, id).Error)
	return p
}

// カート投入→注文作成まで
func placeOrder(t *testing.T, env *testEnv, buyer model.User) usecase.PlaceOrderOutput {
	t.Helper()
	out, err := env.checkout.CreatePendingOrder(context.Background(), buyer.ID, validContact(), "127.0.0.1")
	require.NoError(t, err)
	return out
}

package repository

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPendingOrder(t *testing.T, gdb *gorm.DB, userID int64) model.Order {
	t.Helper()
	o := model.Order{
		UserID:           userID,
		FirstName:        "Sita",
		LastName:         "Sharma",
		Phone:            "9800000000",
		Email:            "sita@example.com",
		AddressLine1:     "Thamel 12",
		Country:          "Nepal",
		State:            "Bagmati",
		City:             "Kathmandu",
		Status:           model.OrderStatusPending,
		FulfillmentState: model.FulfillmentStatePending,
	}
	id, err := NewOrderGormRepository(gdb).Create(context.Background(), o)
	require.NoError(t, err)
	o.ID = id
	return o
}

func TestOrderGormRepository_AssignOrderNumber_Once(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)

	require.NoError(t, r.AssignOrderNumber(ctx, o.ID, "202610151"))
	assert.ErrorIs(t, r.AssignOrderNumber(ctx, o.ID, "202610159"), repo.ErrNotFound)

	got, err := r.FindByIDForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "202610151", *got.OrderNumber)
}

func TestOrderGormRepository_FindByIDForUser_Scoped(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)

	_, err := r.FindByIDForUser(ctx, o.ID, 2)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	locked, err := r.LockByIDForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, o.ID, locked.ID)

	_, err = r.LockByIDForUser(ctx, o.ID, 2)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrderGormRepository_ClaimMaterialization_Once(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)

	first, err := r.ClaimMaterialization(ctx, o.ID)
	require.NoError(t, err)
	second, err := r.ClaimMaterialization(ctx, o.ID)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestOrderGormRepository_LinkPayment(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)

	require.NoError(t, r.LinkPayment(ctx, o.ID, 10))
	// 同じ決済なら何度でもOK
	require.NoError(t, r.LinkPayment(ctx, o.ID, 10))
	assert.ErrorIs(t, r.LinkPayment(ctx, o.ID, 11), repo.ErrAlreadyLinked)
	assert.ErrorIs(t, r.LinkPayment(ctx, 999, 10), repo.ErrNotFound)

	got, err := r.FindByIDForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), *got.PaymentRefID)
}

func TestOrderGormRepository_MarkFulfilledAndFindOrdered(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)
	require.NoError(t, r.AssignOrderNumber(ctx, o.ID, "202610151"))

	_, err := r.FindOrderedByNumber(ctx, "202610151")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.MarkFulfilled(ctx, o.ID))

	got, err := r.FindOrderedByNumber(ctx, "202610151")
	require.NoError(t, err)
	assert.True(t, got.IsOrdered)
	assert.Equal(t, model.OrderStatusAccepted, got.Status)
}

func TestOrderGormRepository_SaveGatewayRequest(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := seedPendingOrder(t, gdb, 1)

	require.NoError(t, r.SaveGatewayRequest(ctx, o.ID, "202610151-abcdef12", 1020))
	got, err := r.FindByIDForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "202610151-abcdef12", got.GatewayTransactionUUID)
	assert.Equal(t, int64(1020), got.GatewayTotalAmount)
}

func TestPaymentGormRepository_GetOrCreate(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewPaymentGormRepository(gdb)

	in := model.Payment{UserID: 1, PaymentID: "ABC123", PaymentMethod: "eSewa", AmountPaid: 1020, Status: model.PaymentStatusCompleted}
	first, created, err := r.GetOrCreate(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	in.AmountPaid = 1
	second, created, err := r.GetOrCreate(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1020), second.AmountPaid)

	// 別の購入者なら別の行
	in.UserID = 2
	third, created, err := r.GetOrCreate(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestPaymentGormRepository_FindLatest(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewPaymentGormRepository(gdb)

	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	older := model.Payment{UserID: 1, PaymentID: "T1", PaymentMethod: "eSewa", Status: model.PaymentStatusCompleted, CreatedAt: now.Add(-time.Hour)}
	newer := model.Payment{UserID: 2, PaymentID: "T1", PaymentMethod: "eSewa", Status: model.PaymentStatusCompleted, CreatedAt: now}
	require.NoError(t, gdb.Create(&older).Error)
	require.NoError(t, gdb.Create(&newer).Error)

	got, err := r.FindLatestByPaymentID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	got, err = r.FindLatestByPaymentIDAndUser(ctx, "T1", 1)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	_, err = r.FindLatestByPaymentIDAndUser(ctx, "T1", 3)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = r.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestInventoryGormRepository_Decrement(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewInventoryGormRepository(gdb)
	p := testutil.SeedProduct(t, gdb, "Mug", 300, 2)

	remaining, err := r.Decrement(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	// マイナスも記録する
	remaining, err = r.Decrement(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), remaining)

	// 論理削除済みでも減らす
	require.NoError(t, gdb.Delete(&model.Product{}, p.ID).Error)
	remaining, err = r.Decrement(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), remaining)

	_, err = r.Decrement(ctx, 9999, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCartGormRepository_ListAndClear(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewCartGormRepository(gdb)

	p := testutil.SeedProduct(t, gdb, "T-shirt", 500, 10)
	red := testutil.SeedVariation(t, gdb, p.ID, model.VariationCategoryColor, "red")
	testutil.SeedCartItem(t, gdb, 1, p.ID, 500, 2, red)
	testutil.SeedCartItem(t, gdb, 2, p.ID, 500, 1)

	items, err := r.ListItemsByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "T-shirt", items[0].Product.Name)
	require.Len(t, items[0].Variations, 1)
	assert.Equal(t, "red", items[0].Variations[0].VariationValue)

	require.NoError(t, r.ClearByUserID(ctx, 1))

	items, err = r.ListItemsByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(0), testutil.CountRows(t, gdb, "cart_item_variations", ""))

	// 他人のカートは残る
	items, err = r.ListItemsByUserID(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderLineItemGormRepository_CreateAndRelink(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewOrderLineItemGormRepository(gdb)

	p := testutil.SeedProduct(t, gdb, "T-shirt", 500, 10)
	red := testutil.SeedVariation(t, gdb, p.ID, model.VariationCategoryColor, "red")

	items := []model.OrderLineItem{
		{CartItemID: 1, UserID: 1, ProductID: p.ID, Quantity: 2, ProductPrice: 500, Variations: []model.Variation{red}},
	}
	require.NoError(t, r.CreateBulk(ctx, 7, items))
	// 同じカート明細からは二重に作れない
	assert.Error(t, r.CreateBulk(ctx, 7, []model.OrderLineItem{{CartItemID: 1, UserID: 1, ProductID: p.ID, Quantity: 2, ProductPrice: 500}}))

	require.NoError(t, r.RelinkPayment(ctx, 7, 55))

	detailed, err := r.ListDetailedByOrderID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, detailed, 1)
	assert.Equal(t, "T-shirt", detailed[0].Product.Name)
	assert.True(t, detailed[0].Ordered)
	assert.Equal(t, int64(55), *detailed[0].PaymentRefID)
	require.Len(t, detailed[0].Variations, 1)
	assert.Equal(t, int64(1000), detailed[0].Subtotal())

	// 既に別の決済に紐づいた明細は付け替えない
	require.NoError(t, r.RelinkPayment(ctx, 7, 56))
	detailed, err = r.ListDetailedByOrderID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, detailed, 1)
	assert.Equal(t, int64(55), *detailed[0].PaymentRefID)
}

func TestTxManagerGorm_RollsBack(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	tm := NewTxManagerGorm(gdb)
	p := testutil.SeedProduct(t, gdb, "Mug", 300, 5)

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Inventory().Decrement(ctx, p.ID, 2); err != nil {
			return err
		}
		_, err := r.Inventory().Decrement(ctx, 9999, 1)
		return err
	})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	var got model.Product
	require.NoError(t, gdb.First(&got, p.ID).Error)
	assert.Equal(t, int64(5), got.Stock)
}

func TestAuditLogGormRepository_CreateAndList(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewAuditLogGormRepository(gdb)

	require.NoError(t, r.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionFulfillOrder, ResourceType: model.AuditResourceOrder, ResourceID: 7, CreatedAt: time.Now()}))
	require.NoError(t, r.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionRelinkPayment, ResourceType: model.AuditResourceOrder, ResourceID: 7, CreatedAt: time.Now()}))

	require.NoError(t, r.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionFulfillOrder, ResourceType: model.AuditResourceOrder, ResourceID: 8, CreatedAt: time.Now()}))

	logs, err := r.ListByResource(ctx, model.AuditResourceOrder, 7)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionFulfillOrder, logs[0].Action)
	assert.Equal(t, model.AuditActionRelinkPayment, logs[1].Action)
}

func TestUserGormRepository_FindByID(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	r := NewUserGormRepository(gdb)
	u := testutil.SeedUser(t, gdb, "sita@example.com")

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sita@example.com", got.Email)

	got, err = r.FindByID(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

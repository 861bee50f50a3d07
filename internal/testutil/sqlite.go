// Package testutil はテスト用のSQLite DBとデータ投入ヘルパー。
package testutil

import (
	"path/filepath"
	"testing"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// テストごとに新しいファイルDBを作ってマイグレーションする
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	//immediateで書き込みトランザクションを直列にする
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=0"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return gdb
}

func SeedUser(t *testing.T, gdb *gorm.DB, email string) model.User {
	t.Helper()
	u := model.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "Buyer",
		IsActive:  true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func SeedProduct(t *testing.T, gdb *gorm.DB, name string, price int64, stock int64) model.Product {
	t.Helper()
	p := model.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func SeedVariation(t *testing.T, gdb *gorm.DB, productID int64, category model.VariationCategory, value string) model.Variation {
	t.Helper()
	v := model.Variation{ProductID: productID, VariationCategory: category, VariationValue: value, IsActive: true}
	require.NoError(t, gdb.Create(&v).Error)
	return v
}

// ACTIVEカートが無ければ作って明細を足す
func SeedCartItem(t *testing.T, gdb *gorm.DB, userID int64, productID int64, price int64, qty int64, vars ...model.Variation) model.CartItem {
	t.Helper()

	var cart model.Cart
	err := gdb.Where("user_id = ? AND status = ?", userID, model.CartStatusActive).First(&cart).Error
	if err != nil {
		cart = model.Cart{UserID: userID, Status: model.CartStatusActive}
		require.NoError(t, gdb.Create(&cart).Error)
	}

	item := model.CartItem{
		CartID:            cart.ID,
		ProductID:         productID,
		Quantity:          qty,
		UnitPriceSnapshot: price,
		Variations:        vars,
	}
	require.NoError(t, gdb.Omit("Product", "Variations.*").Create(&item).Error)
	return item
}

func CountRows(t *testing.T, gdb *gorm.DB, table string, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := gdb.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

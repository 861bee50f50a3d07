package db

import (
	"database/sql"
	"time"

	"marketplace/internal/domain/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect はpgxでDBに接続して *gorm.DB を返す。
func Connect(dsn string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	//決済の戻りが重なっても接続を使い切らない
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// Migrate は注文確定に関わるテーブルを作る。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Variation{},
		&model.Cart{},
		&model.CartItem{},
		&model.Payment{},
		&model.Order{},
		&model.OrderLineItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	)
}

package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 認証サブシステムのユーザー（参照だけ）
type UserRepository interface {
	// 見つからなければ (nil, nil)
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}

package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 注文確定や紐付け直しの記録
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 対象ごとの履歴（古い順）
	ListByResource(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error)
}

package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	//未採番のときだけ注文番号を入れる（一度きり）
	AssignOrderNumber(ctx context.Context, orderID int64, orderNumber string) error

	//他人の注文はErrNotFound
	FindByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error)
	//FindByIDForUserと同じだが行ロックを取る
	LockByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error)
	FindOrderedByNumber(ctx context.Context, orderNumber string) (model.Order, error)

	//決済画面へ送った値を保存（改ざんチェック用）
	SaveGatewayRequest(ctx context.Context, orderID int64, transactionUUID string, totalAmount int64) error

	//PENDING→MATERIALIZEDを取れたらtrue（取れるのは一回だけ）
	ClaimMaterialization(ctx context.Context, orderID int64) (bool, error)

	//未リンクか同じ決済のときだけ更新する。別の決済ならErrAlreadyLinked
	LinkPayment(ctx context.Context, orderID int64, paymentRefID int64) error
	//is_ordered=true, status=ACCEPTED
	MarkFulfilled(ctx context.Context, orderID int64) error
}

package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 注文に別の決済がすでに紐付いている
var ErrAlreadyLinked = errors.New("payment already linked")

// Package gateway はeSewa決済の署名付きリクエスト作成とコールバック検証を行う。
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	Name = "esewa"

	// 署名対象のフィールド（この順番で連結する）
	SignedFieldNames = "total_amount,transaction_uuid,product_code"
)

// 署名対象の1項目
type Field struct {
	Name  string
	Value string
}

type Signer struct {
	secret      []byte
	productCode string
}

func NewSigner(secretKey string, productCode string) *Signer {
	return &Signer{
		secret:      []byte(secretKey),
		productCode: productCode,
	}
}

func (s *Signer) ProductCode() string {
	return s.productCode
}

// "k=v,k=v,..." を作る
func Message(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	return strings.Join(parts, ",")
}

// total_amount, transaction_uuid, product_code の順で署名
func (s *Signer) Sign(totalAmount int64, transactionUUID string) string {
	return s.signMessage(Message([]Field{
		{Name: "total_amount", Value: strconv.FormatInt(totalAmount, 10)},
		{Name: "transaction_uuid", Value: transactionUUID},
		{Name: "product_code", Value: s.productCode},
	}))
}

// base64(HMAC-SHA256(secret, message))
func (s *Signer) signMessage(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) verifyMessage(message string, signature string) bool {
	expected := s.signMessage(message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

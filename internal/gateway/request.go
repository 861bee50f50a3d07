package gateway

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type PaymentRequestInput struct {
	Amount          int64
	TaxAmount       int64
	TotalAmount     int64
	TransactionUUID string
	SuccessURL      string
	FailureURL      string
}

// ブラウザから自動送信するフォームの中身
type PaymentRequest struct {
	Amount                int64  `json:"amount"`
	TaxAmount             int64  `json:"tax_amount"`
	TotalAmount           int64  `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  int64  `json:"product_service_charge"`
	ProductDeliveryCharge int64  `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

func (s *Signer) BuildRequest(in PaymentRequestInput) PaymentRequest {
	return PaymentRequest{
		Amount:                in.Amount,
		TaxAmount:             in.TaxAmount,
		TotalAmount:           in.TotalAmount,
		TransactionUUID:       in.TransactionUUID,
		ProductCode:           s.productCode,
		ProductServiceCharge:  0,
		ProductDeliveryCharge: 0,
		SuccessURL:            in.SuccessURL,
		FailureURL:            in.FailureURL,
		SignedFieldNames:      SignedFieldNames,
		Signature:             s.Sign(in.TotalAmount, in.TransactionUUID),
	}
}

func (r PaymentRequest) FormValues() url.Values {
	v := url.Values{}
	v.Set("amount", strconv.FormatInt(r.Amount, 10))
	v.Set("tax_amount", strconv.FormatInt(r.TaxAmount, 10))
	v.Set("total_amount", strconv.FormatInt(r.TotalAmount, 10))
	v.Set("transaction_uuid", r.TransactionUUID)
	v.Set("product_code", r.ProductCode)
	v.Set("product_service_charge", strconv.FormatInt(r.ProductServiceCharge, 10))
	v.Set("product_delivery_charge", strconv.FormatInt(r.ProductDeliveryCharge, 10))
	v.Set("success_url", r.SuccessURL)
	v.Set("failure_url", r.FailureURL)
	v.Set("signed_field_names", r.SignedFieldNames)
	v.Set("signature", r.Signature)
	return v
}

const suffixLen = 8

// "{reference}-{8桁hex}"。idの先頭8桁がhexでなければランダムなUUIDから作る
func TransactionUUID(reference string, id string) string {
	suffix, ok := hexPrefix(id)
	if !ok {
		suffix, _ = hexPrefix(uuid.NewString())
	}
	return reference + "-" + suffix
}

func hexPrefix(id string) (string, bool) {
	s := strings.ToLower(strings.ReplaceAll(id, "-", ""))
	if len(s) < suffixLen {
		return "", false
	}
	s = s[:suffixLen]
	if _, err := hex.DecodeString(s); err != nil {
		return "", false
	}
	return s, true
}

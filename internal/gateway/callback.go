package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const StatusComplete = "COMPLETE"

var (
	ErrMalformed           = errors.New("malformed callback")
	ErrSignatureMismatch   = errors.New("callback signature mismatch")
	ErrAmountMismatch      = errors.New("callback amount mismatch")
	ErrTransactionMismatch = errors.New("callback transaction mismatch")
)

// デコード済みのコールバック
type Callback struct {
	Status          string
	TransactionCode string
	TransactionUUID string
	TotalAmount     string
	ProductCode     string

	fields map[string]string
}

func (c Callback) IsComplete() bool {
	return c.Status == StatusComplete
}

func (c Callback) Field(name string) string {
	return c.fields[name]
}

// total_amountが数値として読めればその値
func (c Callback) TotalAmountValue() (decimal.Decimal, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(c.TotalAmount), ",", "")
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// 決済画面へ送った値とエコーバックを比べる（エコーが無い項目は見ない）
func (c Callback) MatchesRequest(reference string, totalAmount int64) error {
	if c.TransactionUUID != "" && reference != "" && !strings.HasPrefix(c.TransactionUUID, reference+"-") {
		return fmt.Errorf("%w: %s", ErrTransactionMismatch, c.TransactionUUID)
	}
	if amt, ok := c.TotalAmountValue(); ok && totalAmount > 0 {
		if !amt.Equal(decimal.NewFromInt(totalAmount)) {
			return fmt.Errorf("%w: got %s want %d", ErrAmountMismatch, amt.String(), totalAmount)
		}
	}
	return nil
}

// base64のJSONをデコードする。
// signed_field_namesとsignatureが付いていれば署名も確かめる
func (s *Signer) VerifyCallback(raw string) (Callback, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Callback{}, ErrMalformed
	}
	//クエリで+が空白になって届くことがある
	raw = strings.ReplaceAll(raw, " ", "+")

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Callback{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return Callback{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		fields[k] = stringify(v)
	}

	cb := Callback{
		Status:          strings.ToUpper(strings.TrimSpace(fields["status"])),
		TransactionCode: strings.TrimSpace(fields["transaction_code"]),
		TransactionUUID: fields["transaction_uuid"],
		TotalAmount:     fields["total_amount"],
		ProductCode:     fields["product_code"],
		fields:          fields,
	}

	names := fields["signed_field_names"]
	signature := fields["signature"]
	if names != "" && signature != "" {
		list := strings.Split(names, ",")
		signed := make([]Field, 0, len(list))
		for _, n := range list {
			n = strings.TrimSpace(n)
			signed = append(signed, Field{Name: n, Value: fields[n]})
		}
		if !s.verifyMessage(Message(signed), signature) {
			return cb, ErrSignatureMismatch
		}
	}

	return cb, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

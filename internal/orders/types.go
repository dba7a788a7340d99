package orders

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/keyhaven/keyhaven-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Record store field names for the orders collection.
const (
	FieldDeviceHash    = "customer_device_hash"
	FieldCartRef       = "cart_ref"
	FieldPaymentStatus = "payment_status"
)

// Variant identifies the purchased product variation (edition, seat count).
type Variant struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// LineItem is one product position in an order.
type LineItem struct {
	ProductID     string          `json:"productId" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Variant       Variant         `json:"variant"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Quantity      int             `json:"quantity" validate:"required,min=1"`
}

// LineItems decodes from either a structured JSON array or a JSON string
// containing a serialized array. Older storefront clients double-encode the
// items field, and stored records may carry either form.
type LineItems []LineItem

func (l *LineItems) UnmarshalJSON(data []byte) error {
	raw, empty, err := unwrapDual(data)
	if err != nil {
		return err
	}
	if empty {
		*l = nil
		return nil
	}
	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// CustomerInfo is the optional contact block attached at checkout.
type CustomerInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email" validate:"required,email"`
	WhatsApp     string `json:"whatsapp"`
	DiscountCode string `json:"discountCode"`
}

func (c *CustomerInfo) UnmarshalJSON(data []byte) error {
	raw, empty, err := unwrapDual(data)
	if err != nil {
		return err
	}
	if empty {
		*c = CustomerInfo{}
		return nil
	}
	type plain CustomerInfo
	var decoded plain
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = CustomerInfo(decoded)
	return nil
}

// isZero reports whether the block carries no information. Stored records
// sometimes hold an empty string where the info was never filled in; that
// counts as absent for comparison purposes.
func (c *CustomerInfo) isZero() bool {
	return c == nil || (c.Name == "" && c.Email == "" && c.WhatsApp == "" && c.DiscountCode == "")
}

// OrderSnapshot is the proposed state of an order as submitted by the
// storefront, parsed into canonical structured form at the boundary.
type OrderSnapshot struct {
	Items         LineItems           `json:"items"`
	Customer      *CustomerInfo       `json:"customer_info,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	DeviceHash    string              `json:"customer_device_hash"`
	CartRef       string              `json:"cart_ref"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// StoredOrder is the persisted record, a superset of OrderSnapshot. The id
// is assigned by the record store and immutable once created.
type StoredOrder struct {
	ID                     string               `json:"id,omitempty"`
	OrderNumber            string               `json:"order_number"`
	Items                  LineItems            `json:"items"`
	Customer               *CustomerInfo        `json:"customer_info,omitempty"`
	Subtotal               decimal.Decimal      `json:"subtotal"`
	Total                  decimal.Decimal      `json:"total"`
	DeviceHash             string               `json:"customer_device_hash"`
	CartRef                string               `json:"cart_ref"`
	PaymentStatus          enums.PaymentStatus  `json:"payment_status"`
	PaymentProvider        string               `json:"payment_provider"`
	DeliveryStatus         enums.DeliveryStatus `json:"delivery_status"`
	DeliveryMessages       []string             `json:"delivery_messages"`
	AbandonedCartProcessed bool                 `json:"abandoned_cart_processed"`
	RecoveryEmailSent      string               `json:"recovery_email_sent"`
	RefundedAt             *time.Time           `json:"refunded_at,omitempty"`
}

// unwrapDual normalizes a field that may arrive as structured JSON or as a
// JSON string holding serialized JSON. It reports empty for null/"".
func unwrapDual(data []byte) (json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, true, nil
	}
	if trimmed[0] != '"' {
		return trimmed, false, nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, false, err
	}
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return nil, true, nil
	}
	return json.RawMessage(text), false, nil
}

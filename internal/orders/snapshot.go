package orders

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/keyhaven/keyhaven-backend/pkg/enums"
	"github.com/keyhaven/keyhaven-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// SubmitOrderRequest is the raw submit payload. Items and customer info are
// kept as raw JSON so the dual-encoding forms can be normalized in one place.
type SubmitOrderRequest struct {
	Items         json.RawMessage `json:"items"`
	CustomerInfo  json.RawMessage `json:"info"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	DeviceHash    string          `json:"customer_device_hash"`
	CartRef       string          `json:"cart_ref"`
	PaymentStatus string          `json:"payment_status"`
}

// ParseSnapshot normalizes a submit payload into a canonical OrderSnapshot.
// All shape and content problems surface as a single validation error with
// field-level details so the storefront can show them.
func ParseSnapshot(req SubmitOrderRequest) (OrderSnapshot, error) {
	var snap OrderSnapshot
	details := map[string]string{}

	if req.DeviceHash == "" {
		details["customer_device_hash"] = "customer_device_hash is required"
	}
	if req.CartRef == "" {
		details["cart_ref"] = "cart_ref is required"
	}

	status, err := enums.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		details["payment_status"] = err.Error()
	}

	var items LineItems
	if len(req.Items) == 0 {
		details["items"] = "items is required"
	} else if err := json.Unmarshal(req.Items, &items); err != nil {
		details["items"] = "items must be a JSON array of line items"
	} else if len(items) == 0 {
		details["items"] = "items must contain at least one line item"
	} else {
		validateItems(items, details)
	}

	var customer *CustomerInfo
	if len(req.CustomerInfo) > 0 {
		decoded := &CustomerInfo{}
		if err := json.Unmarshal(req.CustomerInfo, decoded); err != nil {
			details["info"] = "info must be a JSON object"
		} else if !decoded.isZero() {
			collectFieldErrors(validate.Struct(decoded), "info", details)
			customer = decoded
		}
	}

	if req.Subtotal.IsNegative() {
		details["subtotal"] = "subtotal cannot be negative"
	}
	if req.Total.IsNegative() {
		details["total"] = "total cannot be negative"
	}

	if len(details) > 0 {
		return snap, errors.New(errors.CodeValidation, "invalid order payload").WithDetails(details)
	}

	snap = OrderSnapshot{
		Items:         items,
		Customer:      customer,
		Subtotal:      req.Subtotal,
		Total:         req.Total,
		DeviceHash:    req.DeviceHash,
		CartRef:       req.CartRef,
		PaymentStatus: status,
	}
	return snap, nil
}

func validateItems(items LineItems, details map[string]string) {
	for i, item := range items {
		collectFieldErrors(validate.Struct(item), fmt.Sprintf("items[%d]", i), details)
		if item.Price.IsNegative() {
			details[fmt.Sprintf("items[%d].price", i)] = "price cannot be negative"
		}
	}
}

// collectFieldErrors flattens validator output into prefixed detail keys,
// e.g. items[0].variant.id.
func collectFieldErrors(err error, prefix string, details map[string]string) {
	if err == nil {
		return
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		details[prefix] = "is invalid"
		return
	}
	for _, fieldErr := range errs {
		path := fieldErr.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		details[prefix+"."+path] = validationMessage(fieldErr)
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

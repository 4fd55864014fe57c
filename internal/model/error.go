package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ErrorKind groups error codes by how the caller recovers from them.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTransition ErrorKind = "transition"
	KindRemote     ErrorKind = "remote"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeInvalidParameter       = "INVALID_PARAMETER"
	ErrCodeMissingBuyerName       = "MISSING_BUYER_NAME"
	ErrCodeMissingDeliveryAddress = "MISSING_DELIVERY_ADDRESS"
	ErrCodeMissingShop            = "MISSING_SHOP"
	ErrCodeInvalidDeliveryType    = "INVALID_DELIVERY_TYPE"
	ErrCodeEmptyCartNotAllowed    = "EMPTY_CART_NOT_ALLOWED"
	ErrCodeMissingOrderRequest    = "MISSING_ORDER_REQUEST"
	ErrCodeLineNotFound           = "LINE_NOT_FOUND"
	ErrCodeVariantNotFound        = "VARIANT_NOT_FOUND"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeInvalidProduct         = "INVALID_PRODUCT"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeProductUnavailable     = "PRODUCT_UNAVAILABLE"
	ErrCodeMixedShops             = "MIXED_SHOPS"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeIllegalTransition      = "ILLEGAL_TRANSITION"
	ErrCodeTransitionInFlight     = "TRANSITION_IN_FLIGHT"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeStatusConflict         = "STATUS_CONFLICT"
	ErrCodeStockBelowReserved     = "STOCK_BELOW_RESERVED"
	ErrCodeVariantReserved        = "VARIANT_RESERVED"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// DomainError is a tagged error: the caller branches on Kind and Code and shows Message.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewRemoteError wraps a rejection reported by the order service. The message is kept verbatim.
func NewRemoteError(code, message string) *DomainError {
	if code == "" {
		code = ErrCodeInternalError
	}
	return NewDomainError(KindRemote, code, message)
}

// AsDomainError extracts the DomainError from err, if any.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrMissingBuyerName       = NewDomainError(KindValidation, ErrCodeMissingBuyerName, "Buyer name is required")
	ErrMissingDeliveryAddress = NewDomainError(KindValidation, ErrCodeMissingDeliveryAddress, "Delivery address is required for delivery orders")
	ErrMissingShop            = NewDomainError(KindValidation, ErrCodeMissingShop, "Shop could not be determined for this order")
	ErrInvalidDeliveryType    = NewDomainError(KindValidation, ErrCodeInvalidDeliveryType, "Delivery type must be pickup, delivery or digital")
	ErrEmptyCartNotAllowed    = NewDomainError(KindValidation, ErrCodeEmptyCartNotAllowed, "Cart must contain at least one item")
	ErrMissingOrderRequest    = NewDomainError(KindValidation, ErrCodeMissingOrderRequest, "Order request is required")
	ErrLineNotFound           = NewDomainError(KindValidation, ErrCodeLineNotFound, "Cart line does not exist")
	ErrVariantNotFound        = NewDomainError(KindValidation, ErrCodeVariantNotFound, "Variant does not belong to this product")
	ErrInvalidQuantity        = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity is outside the orderable range")
	ErrProductNotFound        = NewDomainError(KindNotFound, ErrCodeProductNotFound, "One or more products not found")
	ErrProductUnavailable     = NewDomainError(KindValidation, ErrCodeProductUnavailable, "Product is not available for sale")
	ErrMixedShops             = NewDomainError(KindValidation, ErrCodeMixedShops, "All items of an order must come from the same shop")
	ErrInsufficientStock      = NewDomainError(KindConflict, ErrCodeInsufficientStock, "Requested quantity is no longer available")
	ErrIllegalTransition      = NewDomainError(KindTransition, ErrCodeIllegalTransition, "Order status change is not allowed")
	ErrTransitionInFlight     = NewDomainError(KindTransition, ErrCodeTransitionInFlight, "Order is already being updated")
	ErrOrderNotFound          = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrStatusConflict         = NewDomainError(KindConflict, ErrCodeStatusConflict, "Order status changed concurrently")
	ErrStockBelowReserved     = NewDomainError(KindConflict, ErrCodeStockBelowReserved, "Variant stock cannot drop below the quantity held by open orders")
	ErrVariantReserved        = NewDomainError(KindConflict, ErrCodeVariantReserved, "Variant is held by open orders and cannot be removed")
	ErrForbidden              = NewDomainError(KindForbidden, ErrCodeForbidden, "Not allowed to act on this order")
)

// IllegalTransition returns ErrIllegalTransition annotated with the attempted edge.
func IllegalTransition(from, to OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

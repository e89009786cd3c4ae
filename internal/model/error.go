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

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeAccessDenied        = "ACCESS_DENIED"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeCartNotFound        = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound    = "CART_ITEM_NOT_FOUND"
	ErrCodeSellerNotFound      = "SELLER_NOT_FOUND"
	ErrCodeReviewNotFound      = "REVIEW_NOT_FOUND"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeOutOfStock          = "OUT_OF_STOCK"
	ErrCodeAlreadyPaid         = "ALREADY_PAID"
	ErrCodeProviderError       = "PROVIDER_ERROR"
	ErrCodeFulfillmentFailed   = "FULFILLMENT_FAILED"
	ErrCodeSyncPartialFailure  = "SYNC_PARTIAL_FAILURE"
	ErrCodeFeatureDisabled     = "FEATURE_DISABLED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia    = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeInvalidWebhookEvent = "INVALID_WEBHOOK"
)

// DomainError is a business rule failure carrying a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so errors built with
// NewDomainError compare equal to the sentinel of their kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ValidationError builds a VALIDATION_ERROR with a formatted message.
func ValidationError(format string, args ...any) *DomainError {
	return NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ErrorCode extracts the domain code from err, or ErrCodeInternalError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// Common domain errors
var (
	ErrValidation         = NewDomainError(ErrCodeValidation, "Invalid request")
	ErrUnauthorised       = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrInvalidCredentials = NewDomainError(ErrCodeUnauthorised, "Invalid email or password")
	ErrAccessDenied       = NewDomainError(ErrCodeAccessDenied, "Access denied")
	ErrAccountDisabled    = NewDomainError(ErrCodeAccessDenied, "Your account has been deactivated. Please contact support.")
	ErrAccountUnverified  = NewDomainError(ErrCodeAccessDenied, "Please verify your email before logging in.")
	ErrSellerNotActive    = NewDomainError(ErrCodeAccessDenied, "Your seller account is not active. Please contact admin.")
	ErrNotPurchased       = NewDomainError(ErrCodeAccessDenied, "You can only review products you have purchased")
	ErrConflict           = NewDomainError(ErrCodeConflict, "Resource already exists")
	ErrEmailTaken         = NewDomainError(ErrCodeConflict, "User with this email already exists")
	ErrReviewExists       = NewDomainError(ErrCodeConflict, "You have already reviewed this product. Use update instead.")
	ErrAlreadySeller      = NewDomainError(ErrCodeConflict, "You are already a seller")
	ErrSellerRequestOpen  = NewDomainError(ErrCodeConflict, "A seller request is already pending or blocked")
	ErrUserNotFound       = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrProductNotFound    = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrCartNotFound       = NewDomainError(ErrCodeCartNotFound, "Cart not found")
	ErrCartItemNotFound   = NewDomainError(ErrCodeCartItemNotFound, "Item not found in cart")
	ErrSellerNotFound     = NewDomainError(ErrCodeSellerNotFound, "Seller not found")
	ErrReviewNotFound     = NewDomainError(ErrCodeReviewNotFound, "Review not found")
	ErrEmptyCart          = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrOutOfStock         = NewDomainError(ErrCodeOutOfStock, "Requested quantity not available in stock")
	ErrAlreadyPaid        = NewDomainError(ErrCodeAlreadyPaid, "Order is already paid with a different method")
	ErrProvider           = NewDomainError(ErrCodeProviderError, "Payment provider request failed")
	ErrFulfillmentFailed  = NewDomainError(ErrCodeFulfillmentFailed, "Payment received but order cannot be fulfilled")
	ErrSyncPartialFailure = NewDomainError(ErrCodeSyncPartialFailure, "Linked records could not be synchronised")
	ErrInvalidOTP         = NewDomainError(ErrCodeValidation, "Invalid or expired OTP")
	ErrAlreadyVerified    = NewDomainError(ErrCodeValidation, "Account is already verified")
	ErrNoTransaction      = NewDomainError(ErrCodeValidation, "No payment transaction found for this order")
	ErrGoogleDisabled     = NewDomainError(ErrCodeFeatureDisabled, "Google sign-in is not configured")
	ErrInvalidWebhook     = NewDomainError(ErrCodeInvalidWebhookEvent, "Webhook signature verification failed")
)

// OutOfStockError names the product whose stock cannot cover the request.
func OutOfStockError(productName string, available int) *DomainError {
	return NewDomainError(ErrCodeOutOfStock,
		fmt.Sprintf("%s - Only %d items available", productName, available))
}

// FulfillmentError names the order line that could not be reserved after payment.
func FulfillmentError(itemName string) *DomainError {
	return NewDomainError(ErrCodeFulfillmentFailed,
		fmt.Sprintf("Item %s is out of stock. Payment received but order cannot be fulfilled.", itemName))
}

package services

import "errors"

// ErrorKind classifies a DomainError for HTTP status mapping
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
	KindAuth       ErrorKind = "auth"
	KindGateway    ErrorKind = "gateway"
)

// DomainError is a business-rule failure with a stable code and a fixed
// human-readable message
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Code so wrapped copies compare equal to the sentinels below
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

func newError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

var (
	ErrMissingDates      = newError(KindValidation, "PROVIDE_START_END_DATE", "Invalid request, please provide start date and end date.")
	ErrInvalidDateFormat = newError(KindValidation, "INVALID_DATE_FORMAT", "Invalid request, dates must use the YYYY-MM-DD format.")
	ErrInvalidDateRange  = newError(KindValidation, "INVALID_START_END_DATE", "Invalid request, start date should be before the end date.")
	ErrStartDateInPast   = newError(KindValidation, "INVALID_START_DATE", "Invalid request, start date should be today or later.")

	ErrBookingUnavailable  = newError(KindValidation, "CAR_BOOKING_NOT_AVAILABLE", "Car booking not available for given dates.")
	ErrAlreadyCancelled    = newError(KindValidation, "ALREADY_CANCELLED", "Invalid request, order is already canceled.")
	ErrTooLateToCancel     = newError(KindValidation, "TOO_LATE_TO_CANCEL", "Order cannot be canceled after the booking date.")
	ErrInvalidReturn       = newError(KindValidation, "INVALID_RETURN_REQUEST", "Invalid request.")
	ErrNoFineGenerated     = newError(KindValidation, "NO_FINE_GENERATED", "Invalid request, no fine generated on this order.")
	ErrFineAlreadyPaid     = newError(KindValidation, "FINE_ALREADY_PAID", "Invalid request, fine amount already paid.")
	ErrInvalidCoupon       = newError(KindValidation, "INVALID_COUPON", "Invalid Coupon Code.")
	ErrCarHasBookings      = newError(KindValidation, "HAS_EXISTING_BOOKINGS", "Cannot delete the object. This Car has existing bookings.")
	ErrBrandHasBookings    = newError(KindValidation, "HAS_EXISTING_BOOKINGS", "Cannot delete the object. This brand has existing bookings.")
	ErrTypeHasBookings     = newError(KindValidation, "HAS_EXISTING_BOOKINGS", "Cannot delete the object. This type has existing bookings.")
	ErrUserHasBookings     = newError(KindValidation, "USER_HAS_BOOKINGS", "Cannot delete the object. User has existing bookings.")
	ErrPasswordMismatch    = newError(KindValidation, "PASSWORD_MISMATCH", "Password fields didn't match.")
	ErrWeakPassword        = newError(KindValidation, "WEAK_PASSWORD", "Password must be at least 8 characters long.")
	ErrInvalidResetToken   = newError(KindValidation, "INVALID_RESET_TOKEN", "Invalid or expired password reset token.")
	ErrInvalidPercentOff   = newError(KindValidation, "INVALID_PERCENTAGE_OFF", "Percentage off must be between 5 and 100.")
	ErrWebhookSignature    = newError(KindValidation, "INVALID_SIGNATURE", "Invalid webhook signature.")
	ErrInvalidCredentials  = newError(KindAuth, "INVALID_CREDENTIALS", "No active account found with the given credentials.")
	ErrInvalidRefreshToken = newError(KindAuth, "INVALID_TOKEN", "Token is invalid or expired.")

	ErrCarNotFound      = newError(KindNotFound, "CAR_NOT_FOUND", "Invalid Car id.")
	ErrBrandNotFound    = newError(KindNotFound, "BRAND_NOT_FOUND", "Brand not found.")
	ErrTypeNotFound     = newError(KindNotFound, "TYPE_NOT_FOUND", "Car type not found.")
	ErrOrderNotFound    = newError(KindNotFound, "ORDER_NOT_FOUND", "Order not found.")
	ErrUserNotFound     = newError(KindNotFound, "USER_NOT_FOUND", "User not found.")
	ErrDiscountNotFound = newError(KindNotFound, "DISCOUNT_NOT_FOUND", "Discount not found.")

	ErrNotOrderOwner = newError(KindForbidden, "FORBIDDEN", "You do not have permission to access this order.")

	ErrEmailTaken    = newError(KindConflict, "USER_EXISTS", "A user with this email already exists.")
	ErrDuplicateName = newError(KindConflict, "DUPLICATE_NAME", "An object with this name already exists.")

	ErrRefundFailed   = newError(KindGateway, "REFUND_FAILED", "Refund could not be processed, order was not canceled.")
	ErrPaymentGateway = newError(KindGateway, "PAYMENT_GATEWAY_ERROR", "Payment gateway request failed.")
)

// AsDomainError extracts a DomainError from err's chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure. Every kind guarantees that no
// state was mutated.
type ErrorKind int

const (
	// KindValidation rejects bad input before any mutation.
	KindValidation ErrorKind = iota
	// KindNotFound means the referenced entity does not exist.
	KindNotFound
	// KindConflict means the operation collides with existing state
	// (duplicate id, already settled). Safe to retry with a different id.
	KindConflict
	// KindAuthorization means the caller lacks the required capability.
	KindAuthorization
	// KindInsufficientFunds means a pool or credit headroom is exhausted.
	// The same operation may succeed later once funded.
	KindInsufficientFunds
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindInsufficientFunds:
		return "insufficient_funds"
	}
	return "unknown"
}

// Error codes surfaced to callers. Codes are stable; messages are not.
const (
	CodeDuplicateOrder          = "DuplicateOrder"
	CodeInvalidAmount           = "InvalidAmount"
	CodeInvalidArgument         = "InvalidArgument"
	CodeOrderNotFound           = "OrderNotFound"
	CodeAlreadyPaid             = "AlreadyPaid"
	CodeOrderNotPayable         = "OrderNotPayable"
	CodeAmountMismatch          = "AmountMismatch"
	CodeDuplicateInvoice        = "DuplicateInvoice"
	CodeCreditLimitExceeded     = "CreditLimitExceeded"
	CodeTermsMismatch           = "TermsMismatch"
	CodeInvoiceNotFound         = "InvoiceNotFound"
	CodeInvoiceAlreadyPaid      = "InvoiceAlreadyPaid"
	CodeOverpaymentNotAllowed   = "OverpaymentNotAllowed"
	CodeInsufficientPoolBalance = "InsufficientPoolBalance"
	CodeOwnershipExceeded       = "OwnershipExceeded"
	CodeNothingAccrued          = "NothingAccrued"
	CodePositionNotFound        = "PositionNotFound"
	CodeRestaurantNotFound      = "RestaurantNotFound"
	CodeCreditLineNotFound      = "CreditLineNotFound"
	CodeNotAuthorized           = "NotAuthorized"
)

// Error is a classified domain failure with a stable code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error by code, so errors.Is works against code
// sentinels regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind ErrorKind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, walking wrapped errors.
// Unclassified errors report ErrorKind(-1).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKind(-1)
}

// CodeOf extracts the stable code from err, or "" for unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

package lifecycle

import (
	"github.com/code-payments/payments-server/pkg/payments/localization"
)

// Error is a business rule violation surfaced by the engine. The localization
// key identifies the user facing message for the error.
type Error struct {
	localizationKey string
	message         string
}

func newError(localizationKey, message string) *Error {
	return &Error{
		localizationKey: localizationKey,
		message:         message,
	}
}

func (e *Error) Error() string {
	return e.message
}

// LocalizationKey returns the message ID used to localize the error
func (e *Error) LocalizationKey() string {
	return e.localizationKey
}

var (
	ErrInvalidCardUsage       = newError(localization.PaymentInvalidCardUsage, "card number must be provided iff the payment method uses a card")
	ErrPaymentNotFound        = newError(localization.PaymentNotFound, "payment not found")
	ErrTerminalState          = newError(localization.PaymentTerminalState, "payment has already succeeded")
	ErrIllegalTransition      = newError(localization.PaymentIllegalTransition, "failed payment can only be moved back to pending")
	ErrNoOpTransition         = newError(localization.PaymentNoOpTransition, "pending payment can only be moved to success or failed")
	ErrInvalidState           = newError(localization.PaymentInvalidState, "payment cannot be cancelled because it is not pending")
	ErrInvalidStatus          = newError(localization.PaymentInvalidStatus, "status must be one of PENDING, SUCCESS or FAILED")
	ErrConcurrentModification = newError(localization.PaymentConcurrentModification, "payment was concurrently modified")
)

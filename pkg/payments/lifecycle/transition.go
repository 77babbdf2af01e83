package lifecycle

import (
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
)

// validateTransition checks whether a payment in the current state can be
// moved to the target status. Checks are evaluated in a fixed order, so only
// the first violation is ever reported.
func validateTransition(current payment.State, target payment.Status) error {
	switch {
	case current == payment.StateCancelled:
		return ErrPaymentNotFound
	case current == payment.StateSucceeded:
		return ErrTerminalState
	case current == payment.StateFailed && target != payment.StatusPending:
		return ErrIllegalTransition
	case current == payment.StatePending && target == payment.StatusPending:
		return ErrNoOpTransition
	}
	return nil
}

// validateCancellation checks whether a payment in the current state can be
// cancelled
func validateCancellation(current payment.State) error {
	switch current {
	case payment.StateCancelled:
		return ErrPaymentNotFound
	case payment.StatePending:
		return nil
	}
	return ErrInvalidState
}

// validateCardUsage checks that a card number is provided exactly when the
// payment method uses a card. An empty card number is never valid.
func validateCardUsage(method payment.Method, cardNumber *string) error {
	if method.RequiresCard() != (cardNumber != nil) {
		return ErrInvalidCardUsage
	}
	if cardNumber != nil && len(*cardNumber) == 0 {
		return ErrInvalidCardUsage
	}
	return nil
}

package payment

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/code-payments/payments-server/pkg/pointer"
)

var userIdentificationPattern = regexp.MustCompile(`^(\d{11}|\d{14})$`)

// Method is the means by which a payment is made
type Method uint8

const (
	MethodUnknown Method = iota
	MethodPix
	MethodBillet
	MethodDebitCard
	MethodCreditCard
)

// State is the lifecycle state of a payment. Cancellation is a state of its
// own, and is only ever entered from StatePending.
type State uint8

const (
	StateUnknown State = iota
	StatePending
	StateSucceeded
	StateFailed
	StateCancelled
)

// Status is the externally visible payment status. Cancelled payments don't
// have one, since they're never surfaced.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusPending
	StatusSuccess
	StatusFailed
)

// VisibleStates are the states of payments that are not cancelled
var VisibleStates = []State{StatePending, StateSucceeded, StateFailed}

type Record struct {
	Id uint64

	PaymentId string

	DebitCode          int64
	UserIdentification string

	Method     Method
	CardNumber *string

	PaymentValue decimal.Decimal

	State State

	Version uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.PaymentId) == 0 {
		return errors.New("payment id is required")
	}

	if !IsValidUserIdentification(r.UserIdentification) {
		return errors.New("user identification must have 11 or 14 digits")
	}

	if r.Method == MethodUnknown || r.Method > MethodCreditCard {
		return errors.New("payment method is required")
	}

	if r.Method.RequiresCard() != (r.CardNumber != nil) {
		return errors.New("card number must be present iff the payment method uses a card")
	}

	if r.CardNumber != nil && len(*r.CardNumber) == 0 {
		return errors.New("card number is empty")
	}

	if r.State == StateUnknown || r.State > StateCancelled {
		return errors.New("state is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		PaymentId: r.PaymentId,

		DebitCode:          r.DebitCode,
		UserIdentification: r.UserIdentification,

		Method:     r.Method,
		CardNumber: pointer.StringCopy(r.CardNumber),

		PaymentValue: r.PaymentValue,

		State: r.State,

		Version: r.Version,

		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.PaymentId = r.PaymentId

	dst.DebitCode = r.DebitCode
	dst.UserIdentification = r.UserIdentification

	dst.Method = r.Method
	dst.CardNumber = pointer.StringCopy(r.CardNumber)

	dst.PaymentValue = r.PaymentValue

	dst.State = r.State

	dst.Version = r.Version

	dst.CreatedAt = r.CreatedAt
	dst.UpdatedAt = r.UpdatedAt
}

// IsCancelled returns whether the payment has been soft cancelled
func (r *Record) IsCancelled() bool {
	return r.State == StateCancelled
}

// IsValidUserIdentification returns whether the value is an 11 digit CPF or a
// 14 digit CNPJ
func IsValidUserIdentification(value string) bool {
	return userIdentificationPattern.MatchString(value)
}

// RequiresCard returns whether payments with this method carry a card number
func (m Method) RequiresCard() bool {
	return m == MethodDebitCard || m == MethodCreditCard
}

func (m Method) String() string {
	switch m {
	case MethodPix:
		return "PIX"
	case MethodBillet:
		return "BILLET"
	case MethodDebitCard:
		return "DEBIT_CARD"
	case MethodCreditCard:
		return "CREDIT_CARD"
	}
	return "UNKNOWN"
}

// ToMethod parses a case-insensitive method name
func ToMethod(value string) (Method, bool) {
	switch strings.ToUpper(value) {
	case "PIX":
		return MethodPix, true
	case "BILLET":
		return MethodBillet, true
	case "DEBIT_CARD":
		return MethodDebitCard, true
	case "CREDIT_CARD":
		return MethodCreditCard, true
	}
	return MethodUnknown, false
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Status returns the externally visible status for the state. Cancelled
// and unknown states map to StatusUnknown.
func (s State) Status() Status {
	switch s {
	case StatePending:
		return StatusPending
	case StateSucceeded:
		return StatusSuccess
	case StateFailed:
		return StatusFailed
	}
	return StatusUnknown
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// State returns the lifecycle state a payment is in when it has the status
func (s Status) State() State {
	switch s {
	case StatusPending:
		return StatePending
	case StatusSuccess:
		return StateSucceeded
	case StatusFailed:
		return StateFailed
	}
	return StateUnknown
}

// ToStatus parses a case-insensitive status name
func ToStatus(value string) (Status, bool) {
	switch strings.ToUpper(value) {
	case "PENDING":
		return StatusPending, true
	case "SUCCESS":
		return StatusSuccess, true
	case "FAILED":
		return StatusFailed, true
	}
	return StatusUnknown, false
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/payments/lifecycle"
	"github.com/code-payments/payments-server/pkg/payments/localization"
)

const (
	successJsonKey   = "success"
	errorJsonKey     = "error"
	errorCodeJsonKey = "code"
	paymentJsonKey   = "payment"
	pageJsonKey      = "page"
)

var (
	errMethodNotAllowed = &requestError{
		localizationKey: localization.RequestMethodNotAllowed,
		message:         "http method not allowed",
	}
	errRateLimited = &requestError{
		localizationKey: localization.RequestRateLimited,
		message:         "rate limited",
	}
)

type templatedError interface {
	TemplateData() map[string]interface{}
}

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

// NewGenericApiFailureResponseBody builds a failure body carrying the
// already localized message and its stable code
func NewGenericApiFailureResponseBody(code, message string) GenericApiResponseBody {
	return map[string]any{
		successJsonKey:   false,
		errorJsonKey:     message,
		errorCodeJsonKey: code,
	}
}

func (b GenericApiResponseBody) With(key string, value any) GenericApiResponseBody {
	b[key] = value
	return b
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleErrorInWebContext maps an error to its HTTP status code and the
// localization key of the message returned to the client. Unrecognized errors
// are never exposed.
func HandleErrorInWebContext(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	switch {
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, localization.RequestMethodNotAllowed
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, localization.RequestRateLimited
	case errors.Is(err, lifecycle.ErrPaymentNotFound):
		return http.StatusNotFound, localization.PaymentNotFound
	case errors.Is(err, lifecycle.ErrConcurrentModification):
		return http.StatusConflict, localization.PaymentConcurrentModification
	case errors.Is(err, payment.ErrInvalidFilter):
		return http.StatusBadRequest, localization.RequestInvalidFilter
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.LocalizationKey()
	}

	var lifecycleErr *lifecycle.Error
	if errors.As(err, &lifecycleErr) {
		return http.StatusBadRequest, lifecycleErr.LocalizationKey()
	}

	return http.StatusInternalServerError, localization.RequestInternalError
}

func templateDataFromError(err error) map[string]interface{} {
	var templated templatedError
	if errors.As(err, &templated) {
		return templated.TemplateData()
	}
	return nil
}

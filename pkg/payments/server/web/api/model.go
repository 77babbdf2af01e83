package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/payments/lifecycle"
	"github.com/code-payments/payments-server/pkg/payments/localization"
)

const (
	maxRequestBodySize = 64 * 1024

	debitCodeQueryParam          = "debitCode"
	userIdentificationQueryParam = "userIdentification"
	statusQueryParam             = "status"
	pageQueryParam               = "page"
	sizeQueryParam               = "size"
	sortQueryParam               = "sort"
)

// requestError is a client input failure detected before reaching the engine
type requestError struct {
	localizationKey string
	message         string
	field           string
}

func newInvalidBodyError(cause error) *requestError {
	return &requestError{
		localizationKey: localization.RequestInvalidBody,
		message:         "invalid request body: " + cause.Error(),
	}
}

func newMissingFieldError(field string) *requestError {
	return &requestError{
		localizationKey: localization.RequestMissingField,
		message:         "missing field " + field,
		field:           field,
	}
}

func newInvalidFieldError(field string, cause error) *requestError {
	return &requestError{
		localizationKey: localization.RequestInvalidField,
		message:         "invalid field " + field + ": " + cause.Error(),
		field:           field,
	}
}

func (e *requestError) Error() string {
	return e.message
}

func (e *requestError) LocalizationKey() string {
	return e.localizationKey
}

func (e *requestError) TemplateData() map[string]interface{} {
	if len(e.field) == 0 {
		return nil
	}
	return map[string]interface{}{"Field": e.field}
}

type createPaymentRequestBody struct {
	DebitCode          *int64           `json:"debitCode"`
	UserIdentification *string          `json:"userIdentification"`
	Method             *string          `json:"method"`
	CardNumber         *string          `json:"cardNumber"`
	PaymentValue       *decimal.Decimal `json:"paymentValue"`
}

func newCreatePaymentRequestFromHttpContext(r *http.Request) (*lifecycle.CreatePaymentRequest, error) {
	var body createPaymentRequestBody
	if err := decodeJsonBody(r, &body); err != nil {
		return nil, err
	}

	if body.DebitCode == nil {
		return nil, newMissingFieldError("debitCode")
	}

	if body.UserIdentification == nil {
		return nil, newMissingFieldError("userIdentification")
	}
	if !payment.IsValidUserIdentification(*body.UserIdentification) {
		return nil, &requestError{
			localizationKey: localization.RequestInvalidUserIdentification,
			message:         "user identification must have 11 or 14 digits",
			field:           "userIdentification",
		}
	}

	if body.Method == nil {
		return nil, newMissingFieldError("method")
	}
	method, ok := payment.ToMethod(*body.Method)
	if !ok {
		return nil, newInvalidFieldError("method", errors.Errorf("unknown method %q", *body.Method))
	}

	if body.PaymentValue == nil {
		return nil, newMissingFieldError("paymentValue")
	}

	return &lifecycle.CreatePaymentRequest{
		DebitCode:          *body.DebitCode,
		UserIdentification: *body.UserIdentification,
		Method:             method,
		CardNumber:         body.CardNumber,
		PaymentValue:       *body.PaymentValue,
	}, nil
}

type updateStatusRequestBody struct {
	Id     *string `json:"id"`
	Status *string `json:"status"`
}

type updateStatusRequest struct {
	paymentId string
	status    payment.Status
}

// Unknown status values are passed through so the engine reports them
func newUpdateStatusRequestFromHttpContext(r *http.Request) (*updateStatusRequest, error) {
	var body updateStatusRequestBody
	if err := decodeJsonBody(r, &body); err != nil {
		return nil, err
	}

	if body.Id == nil {
		return nil, newMissingFieldError("id")
	}
	paymentId, err := parsePaymentId(*body.Id)
	if err != nil {
		return nil, err
	}

	if body.Status == nil {
		return nil, newMissingFieldError("status")
	}
	status, _ := payment.ToStatus(*body.Status)

	return &updateStatusRequest{
		paymentId: paymentId,
		status:    status,
	}, nil
}

type listPaymentsRequest struct {
	filter  *lifecycle.ListFilter
	pageReq *lifecycle.PageRequest
}

func newListPaymentsRequestFromHttpContext(r *http.Request) (*listPaymentsRequest, error) {
	values := r.URL.Query()

	filter := &lifecycle.ListFilter{}
	pageReq := &lifecycle.PageRequest{}

	if raw, ok := nonEmptyQueryValue(values, debitCodeQueryParam); ok {
		debitCode, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, newInvalidFieldError(debitCodeQueryParam, err)
		}
		filter.DebitCode = &debitCode
	}

	if raw, ok := nonEmptyQueryValue(values, userIdentificationQueryParam); ok {
		filter.UserIdentification = &raw
	}

	if raw, ok := nonEmptyQueryValue(values, statusQueryParam); ok {
		status, ok := payment.ToStatus(raw)
		if !ok {
			return nil, lifecycle.ErrInvalidStatus
		}
		filter.Status = &status
	}

	if raw, ok := nonEmptyQueryValue(values, pageQueryParam); ok {
		page, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, newInvalidFieldError(pageQueryParam, err)
		}
		pageReq.Page = page
	}

	if raw, ok := nonEmptyQueryValue(values, sizeQueryParam); ok {
		size, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, newInvalidFieldError(sizeQueryParam, err)
		}
		pageReq.Size = size
	}

	if raw, ok := nonEmptyQueryValue(values, sortQueryParam); ok {
		field, direction, err := parseSort(raw)
		if err != nil {
			return nil, err
		}
		pageReq.SortBy = field
		pageReq.Direction = direction
	}

	return &listPaymentsRequest{
		filter:  filter,
		pageReq: pageReq,
	}, nil
}

// parseSort parses values of the form field[,asc|desc]
func parseSort(value string) (string, query.Ordering, error) {
	parts := strings.Split(value, ",")
	if len(parts) > 2 {
		return "", query.Ascending, newInvalidFieldError(sortQueryParam, errors.New("too many sort components"))
	}

	field := strings.TrimSpace(parts[0])
	if !payment.IsSortableField(field) {
		return "", query.Ascending, newInvalidFieldError(sortQueryParam, errors.Errorf("field %q is not sortable", field))
	}

	direction := query.Ascending
	if len(parts) == 2 {
		var err error
		direction, err = query.ToOrdering(strings.TrimSpace(parts[1]))
		if err != nil {
			return "", query.Ascending, newInvalidFieldError(sortQueryParam, err)
		}
	}

	return field, direction, nil
}

func parsePaymentId(value string) (string, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return "", newInvalidFieldError("id", err)
	}
	return id.String(), nil
}

func decodeJsonBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := decoder.Decode(dst); err != nil {
		return newInvalidBodyError(err)
	}
	return nil
}

func nonEmptyQueryValue(values url.Values, key string) (string, bool) {
	value := strings.TrimSpace(values.Get(key))
	return value, len(value) > 0
}

type paymentView struct {
	Id                 string          `json:"id"`
	DebitCode          int64           `json:"debitCode"`
	UserIdentification string          `json:"userIdentification"`
	Method             string          `json:"method"`
	CardNumber         *string         `json:"cardNumber,omitempty"`
	Status             string          `json:"status"`
	PaymentValue       decimal.Decimal `json:"paymentValue"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func toPaymentView(record *payment.Record) *paymentView {
	return &paymentView{
		Id:                 record.PaymentId,
		DebitCode:          record.DebitCode,
		UserIdentification: record.UserIdentification,
		Method:             record.Method.String(),
		CardNumber:         record.CardNumber,
		Status:             record.State.Status().String(),
		PaymentValue:       record.PaymentValue,
		CreatedAt:          record.CreatedAt.UTC(),
		UpdatedAt:          record.UpdatedAt.UTC(),
	}
}

type pageView struct {
	Items []*paymentView `json:"items"`
	Total uint64         `json:"total"`
	Page  uint64         `json:"page"`
	Size  uint64         `json:"size"`
}

func toPageView(page *lifecycle.Page) *pageView {
	items := make([]*paymentView, len(page.Items))
	for i, record := range page.Items {
		items[i] = toPaymentView(record)
	}

	return &pageView{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Size:  page.Size,
	}
}

package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/metrics"
	"github.com/code-payments/payments-server/pkg/payments/data"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/retry"
	"github.com/code-payments/payments-server/pkg/retry/backoff"
	"github.com/code-payments/payments-server/pkg/sync"
)

const (
	metricsStructName = "payments.lifecycle.engine"

	paymentStateTransitionEventName = "PaymentStateTransition"

	maxUnitOfWorkRetryBackoff = 250 * time.Millisecond

	paymentLockStripes = 1024
)

// CreatePaymentRequest is a request to record a new payment. Field shapes are
// expected to be validated by the caller.
type CreatePaymentRequest struct {
	DebitCode          int64
	UserIdentification string
	Method             payment.Method
	CardNumber         *string
	PaymentValue       decimal.Decimal
}

// ListFilter selects payments by equality on each provided field
type ListFilter struct {
	DebitCode          *int64
	UserIdentification *string
	Status             *payment.Status
}

// PageRequest selects a zero-based page of results. A zero Size selects the
// default page size, and an empty SortBy orders by creation sequence.
type PageRequest struct {
	Page      uint64
	Size      uint64
	SortBy    string
	Direction query.Ordering
}

// Page is a page of payments, alongside the total count of payments matching
// the listing filter
type Page struct {
	Items []*payment.Record
	Total uint64
	Page  uint64
	Size  uint64
}

// Engine enforces the payment lifecycle. Each operation is a single unit of
// work against the data provider, which remains the source of truth across
// processes. Transitions on the same payment are serialized within a process
// to avoid needless version conflicts.
type Engine struct {
	log          *logrus.Entry
	conf         *conf
	data         data.DatabaseData
	paymentLocks *sync.StripedLock
}

func NewEngine(data data.DatabaseData, configProvider ConfigProvider) *Engine {
	return &Engine{
		log:          logrus.StandardLogger().WithField("type", "payments/lifecycle"),
		conf:         configProvider(),
		data:         data,
		paymentLocks: sync.NewStripedLock(paymentLockStripes),
	}
}

// CreatePayment records a new pending payment
func (e *Engine) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*payment.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreatePayment")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":     "CreatePayment",
		"debit_code": req.DebitCode,
		"pay_method": req.Method.String(),
	})

	if err := validateCardUsage(req.Method, req.CardNumber); err != nil {
		log.Debug("card number is inconsistent with payment method")
		return nil, err
	}

	record := &payment.Record{
		PaymentId: uuid.New().String(),

		DebitCode:          req.DebitCode,
		UserIdentification: req.UserIdentification,

		Method:     req.Method,
		CardNumber: req.CardNumber,

		PaymentValue: req.PaymentValue,

		State: payment.StatePending,
	}
	log = log.WithField("payment", record.PaymentId)

	err := e.executeUnitOfWork(ctx, func(ctx context.Context) error {
		return e.data.CreatePayment(ctx, record)
	})
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure creating payment")
		return nil, err
	}

	log.Debug("payment created")
	e.recordStateTransition(ctx, record.PaymentId, payment.StateUnknown, record.State)
	return record, nil
}

// UpdateStatus moves a payment to the target status
func (e *Engine) UpdateStatus(ctx context.Context, paymentId string, target payment.Status) (*payment.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "UpdateStatus")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":  "UpdateStatus",
		"payment": paymentId,
		"target":  target.String(),
	})

	if target.State() == payment.StateUnknown {
		return nil, ErrInvalidStatus
	}

	unlock := e.paymentLocks.Lock(paymentId)
	defer unlock()

	var updated *payment.Record
	var previous payment.State
	err := e.executeUnitOfWork(ctx, func(ctx context.Context) error {
		record, err := e.getPayment(ctx, paymentId)
		if err != nil {
			return err
		}

		if err := validateTransition(record.State, target); err != nil {
			return err
		}

		previous = record.State
		record.State = target.State()
		if err := e.data.SavePayment(ctx, record); err != nil {
			return err
		}

		updated = record
		return nil
	})
	if err != nil {
		e.logOperationError(log, tracer, err)
		return nil, err
	}

	log.WithField("previous", previous.String()).Debug("payment status updated")
	e.recordStateTransition(ctx, paymentId, previous, updated.State)
	return updated, nil
}

// CancelPayment soft cancels a pending payment. Cancelled payments are no
// longer visible through any engine operation.
func (e *Engine) CancelPayment(ctx context.Context, paymentId string) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CancelPayment")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":  "CancelPayment",
		"payment": paymentId,
	})

	unlock := e.paymentLocks.Lock(paymentId)
	defer unlock()

	err := e.executeUnitOfWork(ctx, func(ctx context.Context) error {
		record, err := e.getPayment(ctx, paymentId)
		if err != nil {
			return err
		}

		if err := validateCancellation(record.State); err != nil {
			return err
		}

		record.State = payment.StateCancelled
		return e.data.SavePayment(ctx, record)
	})
	if err != nil {
		e.logOperationError(log, tracer, err)
		return err
	}

	log.Debug("payment cancelled")
	e.recordStateTransition(ctx, paymentId, payment.StatePending, payment.StateCancelled)
	return nil
}

// ListPayments gets a page of non-cancelled payments matching all provided
// filter fields
func (e *Engine) ListPayments(ctx context.Context, filter *ListFilter, pageReq *PageRequest) (*Page, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ListPayments")
	defer tracer.End()

	log := e.log.WithField("method", "ListPayments")

	if filter == nil {
		filter = &ListFilter{}
	}
	if pageReq == nil {
		pageReq = &PageRequest{}
	}

	storeFilter := &payment.Filter{
		DebitCode:          filter.DebitCode,
		UserIdentification: filter.UserIdentification,
		States:             payment.VisibleStates,
	}
	if filter.Status != nil {
		state := filter.Status.State()
		if state == payment.StateUnknown {
			return nil, ErrInvalidStatus
		}
		storeFilter.States = []payment.State{state}
	}

	size := e.pageSize(ctx, pageReq.Size)

	items, total, err := e.data.GetPaymentPage(
		ctx,
		storeFilter,
		query.WithPage(pageReq.Page),
		query.WithLimit(size),
		query.WithSortBy(pageReq.SortBy),
		query.WithDirection(pageReq.Direction),
	)
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure getting payment page")
		return nil, err
	}

	tracer.AddAttribute("total", total)
	return &Page{
		Items: items,
		Total: total,
		Page:  pageReq.Page,
		Size:  size,
	}, nil
}

// pageSize resolves the requested page size against the configured default
// and maximum
func (e *Engine) pageSize(ctx context.Context, requested uint64) uint64 {
	size := requested
	if size == 0 {
		size = e.conf.defaultPageSize.Get(ctx)
	}

	maxSize := e.conf.maxPageSize.Get(ctx)
	if maxSize > payment.MaxPageLimit {
		maxSize = payment.MaxPageLimit
	}
	if size > maxSize {
		size = maxSize
	}
	return size
}

func (e *Engine) getPayment(ctx context.Context, paymentId string) (*payment.Record, error) {
	record, err := e.data.GetPayment(ctx, paymentId)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrPaymentNotFound
	} else if err != nil {
		return nil, err
	}
	return record, nil
}

// executeUnitOfWork runs fn within a transaction. When a concurrent write wins
// the version check, the whole unit of work is re-run against fresh state, so
// the loser observes the winner's result.
func (e *Engine) executeUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	maxAttempts := e.conf.maxUnitOfWorkAttempts.Get(ctx)
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	_, err := retry.Retry(
		ctx,
		func() error {
			return e.data.ExecuteInTx(ctx, sql.LevelDefault, fn)
		},
		retry.Limit(uint(maxAttempts)),
		retry.RetriableErrors(payment.ErrStaleVersion),
		retry.Backoff(backoff.BinaryExponential(e.conf.unitOfWorkRetryBackoff.Get(ctx)), maxUnitOfWorkRetryBackoff),
	)
	if errors.Is(err, payment.ErrStaleVersion) {
		return ErrConcurrentModification
	}
	return err
}

func (e *Engine) logOperationError(log *logrus.Entry, tracer *metrics.MethodTracer, err error) {
	var businessErr *Error
	if errors.As(err, &businessErr) {
		log.WithError(err).Debug("payment operation rejected")
		return
	}

	tracer.OnError(err)
	log.WithError(err).Warn("failure executing payment operation")
}

func (e *Engine) recordStateTransition(ctx context.Context, paymentId string, from, to payment.State) {
	metrics.RecordEvent(ctx, paymentStateTransitionEventName, map[string]interface{}{
		"payment": paymentId,
		"from":    from.String(),
		"to":      to.String(),
	})
}

package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/payments-server/pkg/netutil"
	"github.com/code-payments/payments-server/pkg/payments/lifecycle"
	"github.com/code-payments/payments-server/pkg/payments/localization"
	"github.com/code-payments/payments-server/pkg/rate"
)

const (
	v1PathPrefix       = "/v1"
	v1PaymentsPath     = v1PathPrefix + "/payments"
	v1PaymentPath      = v1PaymentsPath + "/{" + paymentIdPathValue + "}"
	paymentIdPathValue = "id"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
	acceptLanguageHeaderName   = "accept-language"
	allowHeaderName            = "allow"
)

type Server struct {
	log       *logrus.Entry
	engine    *lifecycle.Engine
	limiter   rate.Limiter
	localizer *localization.Localizer
}

func NewPaymentServer(engine *lifecycle.Engine, limiter rate.Limiter, localizer *localization.Localizer) *Server {
	return &Server{
		log:       logrus.StandardLogger().WithField("type", "payments/server/web/api"),
		engine:    engine,
		limiter:   limiter,
		localizer: localizer,
	}
}

func (s *Server) paymentsHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":        path,
			"http_method": r.Method,
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if err := s.checkRateLimit(r); err != nil {
				return s.handleError(log, r, err)
			}

			switch r.Method {
			case http.MethodPost:
				return s.createPayment(log, r)
			case http.MethodPut:
				return s.updateStatus(log, r)
			case http.MethodGet:
				return s.listPayments(log, r)
			}

			w.Header().Set(allowHeaderName, "GET, POST, PUT")
			return s.handleError(log, r, errMethodNotAllowed)
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) paymentHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":        path,
			"http_method": r.Method,
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if err := s.checkRateLimit(r); err != nil {
				return s.handleError(log, r, err)
			}

			if r.Method != http.MethodDelete {
				w.Header().Set(allowHeaderName, "DELETE")
				return s.handleError(log, r, errMethodNotAllowed)
			}

			return s.cancelPayment(log, r)
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) createPayment(log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newCreatePaymentRequestFromHttpContext(r)
	if err != nil {
		return s.handleError(log, r, err)
	}

	record, err := s.engine.CreatePayment(r.Context(), req)
	if err != nil {
		return s.handleError(log, r, err)
	}

	return http.StatusCreated, NewGenericApiSuccessResponseBody().With(paymentJsonKey, toPaymentView(record))
}

func (s *Server) updateStatus(log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newUpdateStatusRequestFromHttpContext(r)
	if err != nil {
		return s.handleError(log, r, err)
	}

	record, err := s.engine.UpdateStatus(r.Context(), req.paymentId, req.status)
	if err != nil {
		return s.handleError(log.WithField("payment", req.paymentId), r, err)
	}

	return http.StatusOK, NewGenericApiSuccessResponseBody().With(paymentJsonKey, toPaymentView(record))
}

func (s *Server) listPayments(log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newListPaymentsRequestFromHttpContext(r)
	if err != nil {
		return s.handleError(log, r, err)
	}

	page, err := s.engine.ListPayments(r.Context(), req.filter, req.pageReq)
	if err != nil {
		return s.handleError(log, r, err)
	}

	return http.StatusOK, NewGenericApiSuccessResponseBody().With(pageJsonKey, toPageView(page))
}

func (s *Server) cancelPayment(log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	paymentId, err := parsePaymentId(r.PathValue(paymentIdPathValue))
	if err != nil {
		return s.handleError(log, r, err)
	}

	err = s.engine.CancelPayment(r.Context(), paymentId)
	if err != nil {
		return s.handleError(log.WithField("payment", paymentId), r, err)
	}

	return http.StatusNoContent, nil
}

func (s *Server) checkRateLimit(r *http.Request) error {
	allowed, err := s.limiter.Allow(netutil.GetClientIP(r))
	if err != nil {
		return err
	}
	if !allowed {
		return errRateLimited
	}
	return nil
}

func (s *Server) handleError(log *logrus.Entry, r *http.Request, err error) (int, GenericApiResponseBody) {
	statusCode, localizationKey := HandleErrorInWebContext(err)
	if statusCode >= http.StatusInternalServerError {
		log.WithError(err).Warn("failure handling request")
	} else {
		log.WithError(err).Debug("request rejected")
	}

	message := s.localizer.Localize(
		localizationKey,
		templateDataFromError(err),
		r.Header.Get(acceptLanguageHeaderName),
	)
	return statusCode, NewGenericApiFailureResponseBody(localizationKey, message)
}

func (s *Server) writeResponse(log *logrus.Entry, w http.ResponseWriter, statusCode int, body GenericApiResponseBody) {
	if body == nil {
		w.WriteHeader(statusCode)
		return
	}

	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body.ToString())); err != nil {
		log.WithError(err).Info("failed to write body")
	}
}

// GetHandlers returns handlers keyed by http.ServeMux patterns
func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		v1PaymentsPath: s.paymentsHandler(v1PaymentsPath),
		v1PaymentPath:  s.paymentHandler(v1PaymentPath),
	}
}

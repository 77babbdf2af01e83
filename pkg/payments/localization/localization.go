package localization

import (
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/code-payments/payments-server/pkg/cache"
)

const (
	// Distinct Accept-Language values are few in practice
	localizerCacheBudget = 256
)

// Message IDs
const (
	PaymentInvalidCardUsage       = "payment.error.invalid_card_usage"
	PaymentNotFound               = "payment.error.not_found"
	PaymentTerminalState          = "payment.error.terminal_state"
	PaymentIllegalTransition      = "payment.error.illegal_transition"
	PaymentNoOpTransition         = "payment.error.noop_transition"
	PaymentInvalidState           = "payment.error.invalid_state"
	PaymentInvalidStatus          = "payment.error.invalid_status"
	PaymentConcurrentModification = "payment.error.concurrent_modification"

	RequestInvalidBody               = "request.error.invalid_body"
	RequestMissingField              = "request.error.missing_field"
	RequestInvalidField              = "request.error.invalid_field"
	RequestInvalidUserIdentification = "request.error.invalid_user_identification"
	RequestInvalidFilter             = "request.error.invalid_filter"
	RequestMethodNotAllowed          = "request.error.method_not_allowed"
	RequestRateLimited               = "request.error.rate_limited"
	RequestInternalError             = "request.error.internal"
)

// DefaultLanguage is used when none of the client's preferred languages are
// supported
var DefaultLanguage = language.English

var messagesByLanguage = map[language.Tag][]*i18n.Message{
	language.English: {
		{ID: PaymentInvalidCardUsage, Other: "A card number is only allowed, and required, when the payment method uses a card."},
		{ID: PaymentNotFound, Other: "The payment was not found."},
		{ID: PaymentTerminalState, Other: "The payment has already been concluded."},
		{ID: PaymentIllegalTransition, Other: "The payment failed, so it can only be changed to the 'pending' status."},
		{ID: PaymentNoOpTransition, Other: "A pending payment can only be changed to the success or failed status."},
		{ID: PaymentInvalidState, Other: "The payment cannot be cancelled, since it is not pending processing."},
		{ID: PaymentInvalidStatus, Other: "The status must be one of PENDING, SUCCESS or FAILED."},
		{ID: PaymentConcurrentModification, Other: "The payment was modified concurrently, please try again."},

		{ID: RequestInvalidBody, Other: "The request body is not valid JSON."},
		{ID: RequestMissingField, Other: "The field '{{.Field}}' is required."},
		{ID: RequestInvalidField, Other: "The field '{{.Field}}' is invalid."},
		{ID: RequestInvalidUserIdentification, Other: "The user identification must have 11 or 14 digits."},
		{ID: RequestInvalidFilter, Other: "The filter or sort parameters are invalid."},
		{ID: RequestMethodNotAllowed, Other: "The HTTP method is not allowed."},
		{ID: RequestRateLimited, Other: "Too many requests, please try again later."},
		{ID: RequestInternalError, Other: "Internal server error."},
	},
	language.BrazilianPortuguese: {
		{ID: PaymentInvalidCardUsage, Other: "Só pode haver número de cartão, caso o método de pagamento utilize cartão!"},
		{ID: PaymentNotFound, Other: "O pagamento não foi encontrado!"},
		{ID: PaymentTerminalState, Other: "O pagamento já foi concluido!"},
		{ID: PaymentIllegalTransition, Other: "O pagamento atual falhou, logo só pode ser alterado para o status 'pendente'!"},
		{ID: PaymentNoOpTransition, Other: "O pagamento com estado pendente só pode ser alterado para o status de sucesso ou de falha!"},
		{ID: PaymentInvalidState, Other: "O pagamento não pode ser deletado, pois não está com processamento pendente!"},
		{ID: PaymentInvalidStatus, Other: "O status deve ser PENDING, SUCCESS ou FAILED!"},
		{ID: PaymentConcurrentModification, Other: "O pagamento foi alterado simultaneamente, tente novamente!"},

		{ID: RequestInvalidBody, Other: "O corpo da requisição não é um JSON válido!"},
		{ID: RequestMissingField, Other: "O campo '{{.Field}}' é obrigatório!"},
		{ID: RequestInvalidField, Other: "O campo '{{.Field}}' é inválido!"},
		{ID: RequestInvalidUserIdentification, Other: "A identificação do usuário deve ter 11 ou 14 dígitos!"},
		{ID: RequestInvalidFilter, Other: "Os parâmetros de filtro ou ordenação são inválidos!"},
		{ID: RequestMethodNotAllowed, Other: "O método HTTP não é permitido!"},
		{ID: RequestRateLimited, Other: "Muitas requisições, tente novamente mais tarde!"},
		{ID: RequestInternalError, Other: "Erro interno do servidor!"},
	},
}

// Localizer resolves user facing messages in the language negotiated from a
// client's preferences
type Localizer struct {
	log    *logrus.Entry
	bundle *i18n.Bundle

	localizers cache.Cache[*i18n.Localizer]
}

func NewLocalizer() (*Localizer, error) {
	bundle := i18n.NewBundle(DefaultLanguage)
	for tag, messages := range messagesByLanguage {
		if err := bundle.AddMessages(tag, messages...); err != nil {
			return nil, err
		}
	}

	return &Localizer{
		log:        logrus.StandardLogger().WithField("type", "payments/localization"),
		bundle:     bundle,
		localizers: cache.NewCache[*i18n.Localizer](localizerCacheBudget),
	}, nil
}

// Localize returns the message for the ID in the best matching language for
// the provided Accept-Language header values. Template data, if any, is
// applied to the message.
func (l *Localizer) Localize(messageId string, templateData map[string]interface{}, acceptLanguages ...string) string {
	localizer := l.getLocalizer(acceptLanguages)

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageId,
		TemplateData: templateData,
	})
	if err != nil {
		l.log.WithError(err).WithField("message_id", messageId).Warn("failure localizing message")
		return messageId
	}
	return msg
}

func (l *Localizer) getLocalizer(acceptLanguages []string) *i18n.Localizer {
	key := strings.Join(acceptLanguages, "\n")
	if cached, ok := l.localizers.Retrieve(key); ok {
		return cached
	}

	localizer := i18n.NewLocalizer(l.bundle, acceptLanguages...)
	if err := l.localizers.Insert(key, localizer, 1); err != nil && err != cache.ErrKeyExists {
		l.log.WithError(err).Warn("failure caching localizer")
	}
	return localizer
}

// SupportedLanguages returns the languages messages are available in
func (l *Localizer) SupportedLanguages() []language.Tag {
	return l.bundle.LanguageTags()
}

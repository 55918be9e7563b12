package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrMissingInput обязательное поле запроса отсутствует
	ErrMissingInput = errors.New("missing required input")

	// ErrPaymentNotPaid провайдер сообщил, что ссылка на оплату не оплачена
	ErrPaymentNotPaid = errors.New("payment not paid")

	// ErrGatewayUnavailable платежный шлюз не ответил успешно при проверке оплаты
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayError платежный шлюз отклонил операцию
	ErrGatewayError = errors.New("payment gateway error")

	// ErrSubscriptionNotFound подписка не найдена
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidState подписка не в том статусе, который допускает операцию
	ErrInvalidState = errors.New("invalid subscription state")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ExternalServiceError представляет ошибку внешнего сервиса
type ExternalServiceError struct {
	Service     string
	Operation   string
	StatusCode  int
	Kind        error
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ExternalServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Service, e.Operation, e.OriginalErr)
	}
	return fmt.Sprintf("%s %s failed", e.Service, e.Operation)
}

// Unwrap возвращает оригинальную ошибку
func (e *ExternalServiceError) Unwrap() error {
	return e.OriginalErr
}

// Is matches the sentinel the error was classified as.
func (e *ExternalServiceError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewExternalServiceError создает новую ошибку внешнего сервиса
func NewExternalServiceError(service, operation string, kind error, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:     service,
		Operation:   operation,
		Kind:        kind,
		OriginalErr: err,
	}
}

// StateError describes a transition that the current status does not allow.
type StateError struct {
	SubscriptionID string
	Current        SubscriptionStatus
	Wanted         SubscriptionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("subscription %s is %s, cannot become %s", e.SubscriptionID, e.Current, e.Wanted)
}

// Is проверяет, является ли ошибка ошибкой статуса
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

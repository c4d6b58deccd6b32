package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда нет действующей сессии (нет токена, токен неверен или сессия истекла).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен сессии истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (например, попытка начать вторую викторину одновременно).
	ErrConflict = errors.New("resource state conflict")

	// ErrExternalService используется, когда упал вызов внешнего сервиса (платежный шлюз, провайдер OAuth).
	ErrExternalService = errors.New("external service error")

	// ErrInvalidSignature используется, когда подпись подтверждения платежа не совпала.
	ErrInvalidSignature = errors.New("invalid signature")
)

// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthorized — неверные учётные данные.
	ErrUnauthorized = errors.New("неверный email или пароль")
	// ErrWebhookUnavailable — webhook конвейера обработки недоступен.
	ErrWebhookUnavailable = errors.New("конвейер обработки недоступен")
	// ErrNotConfigured — операция требует незаданной конфигурации.
	ErrNotConfigured = errors.New("операция не сконфигурирована")
)

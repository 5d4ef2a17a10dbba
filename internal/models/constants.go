package models

const (
	EventReservationCreated = "reservation_created"
)

const (
	// ReservationIDPrefix префикс кода бронирования
	ReservationIDPrefix = "TD"

	// ReservationIDRandomBytes количество случайных байт в коде (10 hex символов)
	ReservationIDRandomBytes = 5

	// DefaultTimezone часовой пояс автомобилей по умолчанию
	DefaultTimezone = "UTC"

	// MaxCodeCollisionRetries попытки перегенерировать код при коллизии
	MaxCodeCollisionRetries = 3

	// DefaultRateLimitRequests количество запросов в окне
	DefaultRateLimitRequests = 60

	// DefaultRateLimitWindow окно ограничения частоты запросов
	DefaultRateLimitWindow = 60 // 1 минута в секундах

	// DefaultBackupRetentionDays сколько дней хранить резервные копии
	DefaultBackupRetentionDays = 7
)

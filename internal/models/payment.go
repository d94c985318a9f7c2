package models

// PaymentRequest представляет сгенерированный платёж Pix.
// Запись эфемерна: живёт от генерации до проверки статуса.
type PaymentRequest struct {
	PaymentID   string `json:"payment_id"`   // Уникальный идентификатор платежа
	DisplayCode string `json:"display_code"` // Код Pix для копирования пользователем
}

// PendingPayment связывает открытый платёж с пользователем,
// который его создал. Хранится в Redis с TTL.
type PendingPayment struct {
	UserID int64 `json:"user_id"`
}

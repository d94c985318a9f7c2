package models

import "time"

// DownloadCompletedEvent публикуется в брокер после успешной загрузки видео.
type DownloadCompletedEvent struct {
	UserID     int64     `json:"user_id"`
	Link       string    `json:"link"`
	IsPremium  bool      `json:"is_premium"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PremiumGrantedEvent публикуется после начисления премиум-дней.
type PremiumGrantedEvent struct {
	UserID     int64     `json:"user_id"`
	Days       int       `json:"days"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

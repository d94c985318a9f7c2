// Package payment реализует заглушку платёжного шлюза Pix.
// Интерфейс сразу различает три исхода проверки статуса, чтобы замена
// на реальный шлюз не потребовала менять сигнатуры, хотя заглушка
// всегда отвечает "оплачено".
package payment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magelan09/shopee-video-bot/internal/models"
)

// Status результат проверки платежа во внешнем шлюзе.
type Status int

const (
	// StatusUnknown платёж с таким идентификатором шлюзу не известен.
	StatusUnknown Status = iota
	// StatusPending платёж создан, но ещё не оплачен.
	StatusPending
	// StatusSettled платёж подтверждён.
	StatusSettled
)

// Service заглушка платёжного шлюза.
type Service struct {
	log *slog.Logger
}

// New создаёт заглушку платёжного сервиса.
func New(log *slog.Logger) *Service {
	return &Service{log: log}
}

// CreatePayment генерирует новый платёж: уникальный идентификатор и
// код Pix для копирования. Код синтаксически правдоподобен, но реального
// списания за ним нет.
func (s *Service) CreatePayment(userID int64) (*models.PaymentRequest, error) {
	const op = "payment.CreatePayment"

	suffix := make([]byte, 16)
	if _, err := rand.Read(suffix); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req := &models.PaymentRequest{
		PaymentID:   uuid.New().String(),
		DisplayCode: buildPixCode(strings.ToUpper(hex.EncodeToString(suffix))),
	}
	s.log.Info("payment created",
		slog.Int64("user_id", userID),
		slog.String("payment_id", req.PaymentID))
	return req, nil
}

// CheckStatus возвращает статус платежа. Заглушка подтверждает любой
// идентификатор.
func (s *Service) CheckStatus(paymentID string) Status {
	_ = paymentID
	return StatusSettled
}

// buildPixCode собирает строку в формате EMV со случайной полезной нагрузкой.
func buildPixCode(suffix string) string {
	return "00020126580014br.gov.bcb.pix0136" +
		uuid.New().String() +
		"520400005303986540510.005802BR5913SHOPEE_VIDEOS6008BRASILIA" +
		"62070503***6304" + suffix
}

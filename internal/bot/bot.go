// Package bot реализует фронтенд Telegram: принимает сообщения и
// callback-кнопки, классифицирует их и вызывает сервисы квот, платежей
// и загрузки видео.
//
// Диспетчер однопоточный: обновления обрабатываются строго по одному,
// обработчик выполняется до конца прежде, чем берётся следующее.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magelan09/shopee-video-bot/internal/models"
	"github.com/magelan09/shopee-video-bot/internal/services/fetcher"
	"github.com/magelan09/shopee-video-bot/internal/services/payment"
)

// premiumDaysPerPayment сколько дней премиума даёт один платёж.
const premiumDaysPerPayment = 30

// pendingPaymentTTL время жизни привязки платежа к пользователю.
const pendingPaymentTTL = 30 * time.Minute

// API часть клиента Telegram, используемая ботом. Выделена в интерфейс,
// чтобы обработчики можно было тестировать без сети.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Entitlements описывает операции сервиса квот, нужные боту.
type Entitlements interface {
	CheckAllowance(ctx context.Context, userID int64) (*models.Allowance, error)
	IncrementUsage(ctx context.Context, userID int64) (*models.Allowance, error)
	AddPremiumDays(ctx context.Context, userID int64, days int) (time.Time, error)
}

// Payments описывает операции платёжного сервиса, нужные боту.
type Payments interface {
	CreatePayment(userID int64) (*models.PaymentRequest, error)
	CheckStatus(paymentID string) payment.Status
}

// Fetcher описывает загрузку видео по ссылке.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (string, error)
}

// PaymentBinder хранит привязку открытого платежа к пользователю.
type PaymentBinder interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует события бота в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Bot связывает транспорт Telegram с сервисами.
type Bot struct {
	api          API
	log          *slog.Logger
	entitlements Entitlements
	payments     Payments
	fetcher      Fetcher
	binder       PaymentBinder
	events       EventPublisher // может быть nil, тогда события не публикуются
	dailyLimit   int
	pollTimeout  int
	supportURL   string
}

// New создаёт бота. events может быть nil.
func New(api API, log *slog.Logger, entitlements Entitlements, payments Payments,
	fetcher Fetcher, binder PaymentBinder, events EventPublisher,
	dailyLimit, pollTimeout int, supportURL string) *Bot {
	return &Bot{
		api:          api,
		log:          log,
		entitlements: entitlements,
		payments:     payments,
		fetcher:      fetcher,
		binder:       binder,
		events:       events,
		dailyLimit:   dailyLimit,
		pollTimeout:  pollTimeout,
		supportURL:   supportURL,
	}
}

// Run запускает long-polling и обрабатывает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate диспетчеризует одно обновление. Приоритет: команды,
// затем поддерживаемые ссылки, затем callback-кнопки, затем всё прочее.
// Ошибка одного обработчика не останавливает цикл.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
	case update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case fetcher.IsSupportedLink(update.Message.Text):
		b.handleLink(ctx, update.Message)
	default:
		b.handleUnknown(update.Message)
	}
}

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magelan09/shopee-video-bot/internal/lib/sl"
	"github.com/magelan09/shopee-video-bot/internal/metrics"
	"github.com/magelan09/shopee-video-bot/internal/models"
	"github.com/magelan09/shopee-video-bot/internal/rabbitmq"
	"github.com/magelan09/shopee-video-bot/internal/services/payment"
)

// promptReason причина показа платёжного предложения, влияет на заголовок.
type promptReason int

const (
	reasonLimitReached promptReason = iota
	reasonPlanExpired
	reasonCommand
)

const callbackCheckPrefix = "check_pay_"

const msgWelcome = `🛒 *Shopee Video Downloader Bot*

Send me a Shopee video link and I will download it for you without a watermark!

*Commands:*
/plan - Show your plan status or subscribe to Premium
/premium - Subscribe to the unlimited (Premium) plan

*Supported links:*
• shopee.com
• shp.ee
• sv.shopee

_Bot built for educational purposes._`

const msgUnknown = "🤔 *Unrecognized command.*\n\n" +
	"Send a Shopee link to download a video or use /plan to see Premium options."

const msgTryAgainLater = "⚠️ Something went wrong on our side. Please try again later."

// handleCommand обрабатывает явные команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(msg, msgWelcome)
	case "plan", "premium":
		b.handlePlanCommand(ctx, msg)
	default:
		b.handleUnknown(msg)
	}
}

// handlePlanCommand показывает статус плана или платёжное предложение.
func (b *Bot) handlePlanCommand(ctx context.Context, msg *tgbotapi.Message) {
	const op = "bot.handlePlanCommand"
	log := b.log.With(slog.String("op", op), sl.UserID(msg.From.ID))

	allowance, err := b.entitlements.CheckAllowance(ctx, msg.From.ID)
	if err != nil {
		log.Error("failed to check allowance", sl.Err(err))
		b.reply(msg, msgTryAgainLater)
		return
	}

	if allowance.IsPremium {
		b.reply(msg, "💎 *You are PREMIUM!*\n\nYour plan is unlimited.\nEnjoy!")
		return
	}
	b.sendPaymentOptions(ctx, msg.Chat.ID, msg.From.ID, reasonCommand)
}

// handleLink обрабатывает сообщение со ссылкой Shopee: проверяет квоту,
// скачивает видео, учитывает использование и отправляет файл.
// Локальный файл удаляется при любом исходе, ошибки удаления глотаются.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) {
	const op = "bot.handleLink"
	log := b.log.With(slog.String("op", op), sl.UserID(msg.From.ID))

	link := strings.TrimSpace(msg.Text)

	allowance, err := b.entitlements.CheckAllowance(ctx, msg.From.ID)
	if err != nil {
		log.Error("failed to check allowance", sl.Err(err))
		b.reply(msg, msgTryAgainLater)
		return
	}
	if !allowance.Allowed {
		reason := reasonLimitReached
		if allowance.PlanExpired {
			reason = reasonPlanExpired
		}
		b.sendPaymentOptions(ctx, msg.Chat.ID, msg.From.ID, reason)
		return
	}

	b.sendChatAction(msg.Chat.ID)
	status, ok := b.reply(msg, "⏳ Downloading the video... Hold on!")

	metrics.DownloadsStarted.Inc()

	var filePath string
	defer func() {
		if filePath != "" {
			_ = os.Remove(filePath)
		}
	}()

	filePath, err = b.fetcher.Fetch(ctx, link)
	if err != nil {
		metrics.DownloadsFailed.Inc()
		log.Error("download failed", sl.Err(err))
		if ok {
			b.editText(msg.Chat.ID, status.MessageID,
				fmt.Sprintf("❌ Failed to download the video:\n`%v`", err))
		}
		return
	}

	allowance, err = b.entitlements.IncrementUsage(ctx, msg.From.ID)
	if err != nil {
		metrics.DownloadsFailed.Inc()
		log.Error("failed to increment usage", sl.Err(err))
		if ok {
			b.editText(msg.Chat.ID, status.MessageID, msgTryAgainLater)
		}
		return
	}

	footer := fmt.Sprintf("📉 Downloads left today: %d/%d", allowance.DownloadsLeft, b.dailyLimit)
	if allowance.IsPremium {
		footer = "💎 Premium user (unlimited)"
	}

	b.sendChatAction(msg.Chat.ID)
	video := tgbotapi.NewVideo(msg.Chat.ID, tgbotapi.FilePath(filePath))
	video.Caption = fmt.Sprintf(
		"✅ Shopee video without a watermark!\n\n_%s_\n\n_Remember to credit the original creator._", footer)
	video.ParseMode = tgbotapi.ModeMarkdown
	video.SupportsStreaming = true

	if _, err := b.api.Send(video); err != nil {
		metrics.DownloadsFailed.Inc()
		log.Error("failed to send video", sl.Err(err))
		if ok {
			b.editText(msg.Chat.ID, status.MessageID,
				fmt.Sprintf("❌ Failed to send the video:\n`%v`", err))
		}
		return
	}

	metrics.DownloadsSucceeded.Inc()
	if ok {
		b.deleteMessage(msg.Chat.ID, status.MessageID)
	}
	b.publish(rabbitmq.RoutingKeyDownloadCompleted, models.DownloadCompletedEvent{
		UserID:     msg.From.ID,
		Link:       link,
		IsPremium:  allowance.IsPremium,
		OccurredAt: time.Now().UTC(),
	})
}

// handleCallback обрабатывает нажатия inline-кнопок.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	switch {
	case strings.HasPrefix(cb.Data, callbackCheckPrefix):
		b.handleCheckPayment(ctx, cb)
	case cb.Data == "buy_premium":
		// Старая кнопка из уже отправленных сообщений ведёт в новый поток.
		// Для callback старше 48 часов Telegram не передаёт Message,
		// тогда пишем в личный чат отправителя.
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		b.sendPaymentOptions(ctx, chatID, cb.From.ID, reasonCommand)
	}
}

// handleCheckPayment проверяет статус платежа и начисляет премиум.
func (b *Bot) handleCheckPayment(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	const op = "bot.handleCheckPayment"
	paymentID := strings.TrimPrefix(cb.Data, callbackCheckPrefix)
	log := b.log.With(slog.String("op", op), slog.String("payment_id", paymentID))

	if b.payments.CheckStatus(paymentID) != payment.StatusSettled {
		_, _ = b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID,
			"Payment not confirmed yet. Try again in a moment."))
		return
	}

	userID := cb.From.ID
	var pending models.PendingPayment
	if found, err := b.binder.Get(ctx, paymentKey(paymentID), &pending); err != nil {
		log.Warn("failed to resolve pending payment", sl.Err(err))
	} else if found {
		userID = pending.UserID
	}

	expiry, err := b.entitlements.AddPremiumDays(ctx, userID, premiumDaysPerPayment)
	if err != nil {
		log.Error("failed to grant premium", sl.Err(err))
		_, _ = b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID,
			"Something went wrong. Please try again later."))
		return
	}
	if err := b.binder.Invalidate(ctx, paymentKey(paymentID)); err != nil {
		log.Warn("failed to invalidate pending payment", sl.Err(err))
	}

	metrics.PremiumGrants.Inc()
	if cb.Message != nil {
		b.editText(cb.Message.Chat.ID, cb.Message.MessageID,
			"✅ *Payment confirmed!*\n\nYou are now *Premium* for 30 days.\nUnlimited downloads unlocked! 🚀")
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, "Payment approved!"))
	} else {
		// Message отсутствует у callback старше 48 часов,
		// подтверждение показываем только алертом.
		_, _ = b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID,
			"Payment approved! Premium is active for 30 days."))
	}

	b.publish(rabbitmq.RoutingKeyPremiumGranted, models.PremiumGrantedEvent{
		UserID:     userID,
		Days:       premiumDaysPerPayment,
		ExpiresAt:  expiry,
		OccurredAt: time.Now().UTC(),
	})
}

// handleUnknown отвечает на нераспознанные сообщения.
func (b *Bot) handleUnknown(msg *tgbotapi.Message) {
	b.reply(msg, msgUnknown)
}

// sendPaymentOptions отправляет платёжное предложение: заголовок по
// причине, код Pix и кнопки проверки платежа и поддержки.
func (b *Bot) sendPaymentOptions(ctx context.Context, chatID, userID int64, reason promptReason) {
	const op = "bot.sendPaymentOptions"
	log := b.log.With(slog.String("op", op), sl.UserID(userID))

	var header string
	switch reason {
	case reasonLimitReached:
		header = "🚫 *Your free daily limit is over!*"
	case reasonPlanExpired:
		header = "⚠️ *Your Premium plan has expired!*"
	default:
		header = "💎 *Premium plan (Unlimited)*"
	}

	headerMsg := tgbotapi.NewMessage(chatID,
		header+"\n\nSubscribe now to keep downloading videos without limits or queues!")
	headerMsg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(headerMsg); err != nil {
		log.Error("failed to send payment header", sl.Err(err))
	}

	req, err := b.payments.CreatePayment(userID)
	if err != nil {
		log.Error("failed to create payment", sl.Err(err))
		b.send(chatID, msgTryAgainLater)
		return
	}

	// Привязка нужна, чтобы callback сопоставить с пользователем;
	// при недоступном Redis остаётся запасной путь через отправителя callback.
	if err := b.binder.Set(ctx, paymentKey(req.PaymentID),
		models.PendingPayment{UserID: userID}, pendingPaymentTTL); err != nil {
		log.Warn("failed to bind pending payment", sl.Err(err))
	}

	codeMsg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Your Pix code (Unlimited - 30 days)\nTap below to copy it:\n\n`%s`\n\n"+
			"⚠️ _The payment processor only handles the transaction._", req.DisplayCode))
	codeMsg.ParseMode = tgbotapi.ModeMarkdown
	codeMsg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Check payment", callbackCheckPrefix+req.PaymentID)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💬 Support", b.supportURL)),
	)
	if _, err := b.api.Send(codeMsg); err != nil {
		log.Error("failed to send payment code", sl.Err(err))
	}
}

// reply отправляет ответ на сообщение и возвращает отправленное сообщение.
func (b *Bot) reply(msg *tgbotapi.Message, text string) (tgbotapi.Message, bool) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyToMessageID = msg.MessageID
	sent, err := b.api.Send(out)
	if err != nil {
		b.log.Error("failed to send reply", sl.Err(err))
		return tgbotapi.Message{}, false
	}
	return sent, true
}

// send отправляет простое сообщение в чат.
func (b *Bot) send(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(out); err != nil {
		b.log.Error("failed to send message", sl.Err(err))
	}
}

// editText редактирует ранее отправленное сообщение.
func (b *Bot) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("failed to edit message", sl.Err(err))
	}
}

// deleteMessage удаляет сообщение, ошибки игнорируются.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	_, _ = b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

// sendChatAction показывает индикатор "отправляет видео".
func (b *Bot) sendChatAction(chatID int64) {
	_, _ = b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadVideo))
}

// publish отправляет событие в брокер, если он настроен.
func (b *Bot) publish(routingKey string, event any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(routingKey, event); err != nil {
		b.log.Warn("failed to publish event", sl.Err(err))
	}
}

func paymentKey(paymentID string) string {
	return "payment:" + paymentID
}

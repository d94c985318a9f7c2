// Package metrics содержит счётчики Prometheus, отдаваемые на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DownloadsStarted количество принятых в работу ссылок.
	DownloadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_downloads_started_total",
		Help: "Number of download attempts started.",
	})
	// DownloadsSucceeded количество успешно отправленных видео.
	DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_downloads_succeeded_total",
		Help: "Number of videos downloaded and delivered.",
	})
	// DownloadsFailed количество загрузок, завершившихся ошибкой.
	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_downloads_failed_total",
		Help: "Number of download attempts that failed.",
	})
	// PremiumGrants количество начислений премиум-дней.
	PremiumGrants = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_premium_grants_total",
		Help: "Number of premium grants after settled payments.",
	})
)

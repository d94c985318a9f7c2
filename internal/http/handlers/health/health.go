// Package health реализует HTTP-обработчик проверки работоспособности.
// Обработчик опрашивает хранилище и возвращает 503, если оно недоступно.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magelan09/shopee-video-bot/internal/http/response"
	"github.com/magelan09/shopee-video-bot/internal/lib/sl"
)

// ReadinessChecker проверяет готовность зависимости обработчика.
type ReadinessChecker interface {
	CheckDatabaseReady() error
}

type Handler struct {
	log     *slog.Logger
	checker ReadinessChecker
}

func New(log *slog.Logger, checker ReadinessChecker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.CheckDatabaseReady(); err != nil {
		h.log.Error("health check failed", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}

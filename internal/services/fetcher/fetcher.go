// Package fetcher скачивает видео Shopee через внешний сервис извлечения.
//
// Протокол двухшаговый: GET главной страницы для получения CSRF-токена
// из текста страницы, затем GET эндпоинта загрузки с токеном и ссылкой.
// Разметка внешнего сайта не документирована и может сломаться в любой
// момент, поэтому вся хрупкая логика изолирована за методом Fetch.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/magelan09/shopee-video-bot/internal/config"
	"github.com/magelan09/shopee-video-bot/internal/lib/sl"
)

var (
	// ErrTokenNotFound токен не найден ни одним из известных шаблонов.
	ErrTokenNotFound = errors.New("csrf token not found on landing page")
	// ErrExtractionFailed сервис вернул страницу ошибки вместо видео.
	ErrExtractionFailed = errors.New("extraction service returned an error page")
)

// tokenPatterns упорядоченный список шаблонов поиска токена,
// побеждает первый совпавший.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`csrfToken\s*=\s*["']([a-f0-9]+)["']`),
	regexp.MustCompile(`name="csrf_token" value="([a-f0-9]+)"`),
	regexp.MustCompile(`csrf_token\s*=\s*["']([a-f0-9]+)["']`),
}

// supportedHosts фрагменты хостов, по которым распознаётся ссылка Shopee.
var supportedHosts = []string{"shopee.com", "shp.ee", "sv.shopee"}

// IsSupportedLink сообщает, содержит ли текст ссылку на видео Shopee.
// Проверка нестрогая: достаточно вхождения фрагмента без учёта регистра.
func IsSupportedLink(text string) bool {
	lower := strings.ToLower(text)
	for _, host := range supportedHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// Fetcher клиент сервиса извлечения видео.
type Fetcher struct {
	homeURL     string
	downloadURL string
	outputDir   string
	timeout     time.Duration
	limiter     *rate.Limiter
	log         *slog.Logger
}

// New создаёт клиент и каталог для загруженных файлов.
func New(cfg config.Extractor, outputDir string, log *slog.Logger) (*Fetcher, error) {
	const op = "fetcher.New"

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Fetcher{
		homeURL:     cfg.HomeURL,
		downloadURL: cfg.DownloadURL,
		outputDir:   outputDir,
		timeout:     cfg.RequestTimeout,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		log:         log,
	}, nil
}

// Fetch скачивает видео по ссылке link и возвращает абсолютный путь к
// файлу. Файл после использования удаляет вызывающая сторона, сам
// Fetcher свои результаты не трогает.
func (f *Fetcher) Fetch(ctx context.Context, link string) (string, error) {
	const op = "fetcher.Fetch"

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// Свежая сессия с cookie на оба запроса, как делает браузер.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	client := &http.Client{Timeout: f.timeout, Jar: jar}

	token, err := f.csrfToken(ctx, client)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	params := url.Values{}
	params.Set("url", link)
	params.Set("csrf_token", token)
	params.Set("preview", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.downloadURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	f.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrExtractionFailed)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("%s: %w", op, ErrExtractionFailed)
	}

	path := filepath.Join(f.outputDir, generateFilename())
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			f.log.Warn("failed to remove partial file", sl.Err(rmErr))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return abs, nil
}

// csrfToken запрашивает главную страницу и извлекает токен.
func (f *Fetcher) csrfToken(ctx context.Context, client *http.Client) (string, error) {
	const op = "fetcher.csrfToken"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.homeURL, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	f.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	for _, pattern := range tokenPatterns {
		if match := pattern.FindSubmatch(body); match != nil {
			return string(match[1]), nil
		}
	}
	return "", fmt.Errorf("%s: %w", op, ErrTokenNotFound)
}

// setHeaders выставляет браузероподобные заголовки, без которых сервис
// отдаёт страницу ошибки.
func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", f.homeURL)
	req.Header.Set("Origin", strings.TrimSuffix(f.homeURL, "/"))
}

// generateFilename возвращает уникальное имя файла для загрузки.
func generateFilename() string {
	return fmt.Sprintf("video_%s.mp4", uuid.New().String()[:8])
}

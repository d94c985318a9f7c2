package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magelan09/shopee-video-bot/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestFetcher(t *testing.T, serverURL string) (*Fetcher, string) {
	t.Helper()
	outputDir := t.TempDir()
	f, err := New(config.Extractor{
		HomeURL:           serverURL + "/",
		DownloadURL:       serverURL + "/download",
		RequestTimeout:    5 * time.Second,
		RequestsPerSecond: 100,
		Burst:             10,
	}, outputDir, newNoopLogger())
	require.NoError(t, err)
	return f, outputDir
}

func TestIsSupportedLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"shopee.com.br link", "https://shopee.com.br/video/123", true},
		{"short link", "https://shp.ee/abc", true},
		{"share-video link", "https://sv.shopee.com.br/share-video/xyz", true},
		{"uppercase", "HTTPS://SHP.EE/ABC", true},
		{"fragment inside text", "check this out sv.shopee please", true},
		{"unrelated text", "hello world", false},
		{"empty", "", false},
		{"other site", "https://youtube.com/watch?v=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupportedLink(tt.text))
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	videoBody := []byte("fake mp4 payload")

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<script>const csrfToken = "abc123def";</script>`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("csrf_token") != "abc123def" ||
			r.URL.Query().Get("url") == "" ||
			r.URL.Query().Get("preview") != "1" {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(videoBody)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, _ := newTestFetcher(t, server.URL)

	path, err := f.Fetch(context.Background(), "https://shopee.com.br/video/123")
	require.NoError(t, err)
	defer os.Remove(path)

	assert.True(t, filepath.IsAbs(path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, videoBody, got)
}

func TestFetcher_Fetch_TokenPatterns(t *testing.T) {
	pages := []string{
		`const csrfToken = "aabb01"`,
		`<input type="hidden" name="csrf_token" value="aabb01">`,
		`var csrf_token = 'aabb01'`,
	}

	for _, page := range pages {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(page))
		})
		mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("csrf_token") != "aabb01" {
				w.Header().Set("Content-Type", "text/html")
				return
			}
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("ok"))
		})
		server := httptest.NewServer(mux)

		f, _ := newTestFetcher(t, server.URL)
		path, err := f.Fetch(context.Background(), "https://shp.ee/abc")
		require.NoError(t, err, "page: %s", page)
		_ = os.Remove(path)
		server.Close()
	}
}

func TestFetcher_Fetch_TokenNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>nothing here</body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, outputDir := newTestFetcher(t, server.URL)

	_, err := f.Fetch(context.Background(), "https://shp.ee/abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenNotFound))
	assertNoFiles(t, outputDir)
}

func TestFetcher_Fetch_HTMLResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`csrf_token = "aabb01"`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>invalid link</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, outputDir := newTestFetcher(t, server.URL)

	_, err := f.Fetch(context.Background(), "https://shp.ee/abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assertNoFiles(t, outputDir)
}

func TestFetcher_Fetch_ErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`csrf_token = "aabb01"`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, outputDir := newTestFetcher(t, server.URL)

	_, err := f.Fetch(context.Background(), "https://shp.ee/abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assertNoFiles(t, outputDir)
}

// assertNoFiles проверяет, что при неуспехе в каталоге не осталось файлов.
func assertNoFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

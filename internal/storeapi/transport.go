package storeapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// logTransport tags each request with an id and logs its outcome.
type logTransport struct {
	next http.RoundTripper
	log  *slog.Logger
}

func (t *logTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(requestIDHeader) == "" {
		r = r.Clone(r.Context())
		r.Header.Set(requestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(r)
	dur := time.Since(start)

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get(requestIDHeader),
		"duration_ms", dur.Milliseconds(),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}
	if err != nil {
		t.log.Log(r.Context(), slog.LevelError, "http request failed", append(attrs, "err", err)...)
		return nil, err
	}
	attrs = append(attrs, "status", resp.StatusCode)
	t.log.Log(r.Context(), levelForStatus(resp.StatusCode), "http request", attrs...)
	return resp, nil
}

func levelForStatus(code int) slog.Level {
	if code >= 500 {
		return slog.LevelError
	}
	if code >= 400 {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

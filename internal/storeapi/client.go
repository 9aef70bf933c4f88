// Package storeapi is the client of the tire-storage REST backend.
package storeapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/errs"
)

const defaultTimeout = 20 * time.Second

type Client struct {
	baseURL   *url.URL
	hc        *http.Client
	userAgent string
	log       *slog.Logger
	docs      *docCache

	mu    sync.RWMutex
	token string
}

type ClientOptions struct {
	Addr      string
	Insecure  bool
	Timeout   time.Duration
	UserAgent string
	Token     string
	Logger    *slog.Logger

	// CacheSize and CacheTTL bound the cache of rarely changing documents
	// (form config, PDF template, calculator settings). A zero size
	// disables it.
	CacheSize int
	CacheTTL  time.Duration
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + opt.Addr)
		if err != nil {
			return nil, err
		}
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}
	u.Path = strings.TrimRight(u.Path, "/")

	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(slog.String("component", "storeapi"))

	t := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if strings.EqualFold(u.Scheme, "https") {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.Insecure} //nolint:gosec
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	hc := &http.Client{Transport: &logTransport{next: t, log: logger}, Timeout: timeout}
	return &Client{
		baseURL:   u,
		hc:        hc,
		userAgent: opt.UserAgent,
		log:       logger,
		docs:      newDocCache(opt.CacheSize, opt.CacheTTL),
		token:     opt.Token,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.docs.purge()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Wrap(errs.CodeDependency, err, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, errs.FromResponse(resp.StatusCode, readDetail(resp.Body))
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeJSON(resp.Body, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return errs.Wrap(errs.CodeInternal, err, "malformed response")
	}
	return nil
}

// download copies a binary response body to w.
func (c *Client) download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// readDetail extracts the backend's explanation from an error body. The
// backend reports {"detail": "..."} or, for rejected payloads,
// {"detail": [{"loc": [...], "msg": "..."}]}.
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(b) == 0 {
		return ""
	}
	var env struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(b, &env) != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return s
	}
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(env.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

type messageResponse struct {
	Message string `json:"message"`
}

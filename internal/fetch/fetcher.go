// Package fetch downloads remote images over HTTP and HTTPS.
//
// Redirects are followed by the fetcher itself rather than by net/http so that every
// hop is logged and the hop budget is explicit.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultMaxRedirects is the hop budget when Config.MaxRedirects is zero.
	DefaultMaxRedirects = 10
	// DefaultMaxBytes caps a response body when Config.MaxBytes is zero.
	DefaultMaxBytes = 32 << 20
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "imgsize"
)

var (
	ErrStatus           = errors.New("unexpected HTTP status")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrMissingLocation  = errors.New("redirect without Location header")
	ErrTooLarge         = errors.New("response body too large")
	ErrScheme           = errors.New("unsupported URL scheme")
)

// Error describes a failed fetch. URL is the address of the request that failed,
// which differs from the requested URL after a redirect.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config configures the fetcher.
type Config struct {
	Timeout      time.Duration     // whole-request timeout; zero means none
	MaxRedirects int               // redirect hops allowed; zero means 10
	MaxBytes     int64             // largest accepted body; default 32 MiB
	UserAgent    string            // default "imgsize"
	Headers      map[string]string // extra request headers
	Logger       *slog.Logger      // default slog.Default()
	Client       *http.Client      // optional; its CheckRedirect is replaced
}

func (c *Config) defaults() {
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher retrieves image bytes.
type Fetcher struct {
	client *http.Client
	config Config
	log    *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Client != nil {
		c := *cfg.Client
		client = &c
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Fetcher{
		client: client,
		config: cfg,
		log:    cfg.Logger,
	}
}

// Fetch downloads rawURL and returns the full response body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL, f.config.MaxRedirects)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, hopsLeft int) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("%w: %q", ErrScheme, u.Scheme)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	f.log.Debug("downloading image", "url", rawURL)
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("request failed", "url", rawURL, "error", err)
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if isRedirect(resp.StatusCode) {
		next, err := resp.Location()
		if err != nil {
			f.log.Warn("redirect without location", "url", rawURL, "status", resp.StatusCode)
			return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrMissingLocation}
		}
		if hopsLeft <= 0 {
			f.log.Warn("redirect limit reached", "url", rawURL, "max", f.config.MaxRedirects)
			return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrTooManyRedirects}
		}
		f.log.Info("redirected", "from", rawURL, "to", next.String(), "status", resp.StatusCode)
		return f.fetch(ctx, next.String(), hopsLeft-1)
	}

	if resp.StatusCode != http.StatusOK {
		f.log.Warn("http error", "url", rawURL, "status", resp.StatusCode)
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		f.log.Warn("download error", "url", rawURL, "error", err)
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrTooLarge}
	}

	f.log.Debug("downloaded image", "url", rawURL, "bytes", len(body))
	return body, nil
}

// isRedirect reports whether a status asks the client to look elsewhere.
// 304 Not Modified is not a redirect.
func isRedirect(code int) bool {
	return code >= 300 && code < 400 && code != http.StatusNotModified
}

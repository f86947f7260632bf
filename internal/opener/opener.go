// Package opener fetches remote resources (registry XML, khrplatform.h).
package opener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"
)

// Opener abstracts network access so generation can run offline in tests.
type Opener interface {
	// Open returns the body of url. The caller closes it.
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	// Retrieve downloads url into the file dst, creating parent directories.
	Retrieve(ctx context.Context, url, dst string) error
}

// Settings configures a URLOpener.
type Settings struct {
	UserAgent   string
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries  int
	BackoffBase time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		UserAgent:   "gladgen",
		HTTPTimeout: 30 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithUserAgent(ua string) Option         { return func(s *Settings) { s.UserAgent = ua } }
func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// URLOpener fetches over http(s). Retrieve goes through go-getter so the
// same call also accepts local paths and file:// sources.
type URLOpener struct {
	settings Settings
	client   *http.Client
	logger   *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger, opts ...Option) *URLOpener {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &URLOpener{
		settings: settings,
		client:   &http.Client{Timeout: settings.HTTPTimeout},
		logger:   logger,
	}
}

var (
	defaultOnce   sync.Once
	defaultOpener *URLOpener
)

// Default returns a process-wide URLOpener with default settings.
func Default() *URLOpener {
	defaultOnce.Do(func() { defaultOpener = New(nil) })
	return defaultOpener
}

func (o *URLOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var lastErr error
	backoff := o.settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := o.settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		if o.settings.UserAgent != "" {
			req.Header.Set("User-Agent", o.settings.UserAgent)
		}
		o.logger.Debugw("fetching", "url", rawURL, "attempt", i+1)
		resp, err := o.client.Do(req)
		if err == nil && resp.StatusCode < 300 {
			return resp.Body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
				_ = resp.Body.Close()
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				_ = resp.Body.Close()
				return nil, errors.Newf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, errors.Wrapf(lastErr, "fetch %s", rawURL)
}

func (o *URLOpener) Retrieve(ctx context.Context, rawURL, dst string) error {
	abs, err := filepath.Abs(dst)
	if err != nil {
		return errors.Wrap(err, "resolve destination")
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	client := &getter.Client{
		Ctx:     ctx,
		Src:     rawURL,
		Dst:     abs,
		Pwd:     pwd,
		Mode:    getter.ClientModeFile,
		Getters: getter.Getters,
	}
	o.logger.Debugw("retrieving", "url", rawURL, "destination", abs)
	if err := client.Get(); err != nil {
		return errors.Wrapf(err, "retrieve %s", rawURL)
	}
	return nil
}

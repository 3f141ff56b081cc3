package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/doctrack/doctrack/internal/errs"
)

// HTTPFetcher is the default Fetcher, built around net/http with the
// teacher's connection-pooling and retry conventions.
type HTTPFetcher struct {
	client *http.Client
	cfg    Config
	retry  retryPolicy
	logger zerolog.Logger
}

// NewHTTPFetcher builds an HTTPFetcher from cfg.
func NewHTTPFetcher(cfg Config, logger zerolog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout: cfg.DialTimeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}

	client := &http.Client{Transport: transport, Timeout: cfg.Timeout}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if cfg.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	}

	return &HTTPFetcher{
		client: client,
		cfg:    cfg,
		retry:  newRetryPolicy(cfg),
		logger: logger.With().Str("component", "HTTPFetcher").Logger(),
	}
}

// Builder is a fluent HTTPFetcher configurator, mirroring the teacher's
// HTTPClientBuilder.
type Builder struct {
	cfg    Config
	logger zerolog.Logger
}

// NewBuilder starts from DefaultConfig.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{cfg: DefaultConfig(), logger: logger}
}

func (b *Builder) WithTimeout(d time.Duration) *Builder         { b.cfg.Timeout = d; return b }
func (b *Builder) WithUserAgent(ua string) *Builder             { b.cfg.UserAgent = ua; return b }
func (b *Builder) WithMaxContentBytes(n int64) *Builder         { b.cfg.MaxContentBytes = n; return b }
func (b *Builder) WithMaxRetries(n int) *Builder                { b.cfg.MaxRetries = n; return b }
func (b *Builder) WithInsecureSkipVerify(skip bool) *Builder    { b.cfg.InsecureSkipVerify = skip; return b }
func (b *Builder) WithFollowRedirects(follow bool) *Builder     { b.cfg.FollowRedirects = follow; return b }

// Build returns the configured HTTPFetcher.
func (b *Builder) Build() *HTTPFetcher {
	return NewHTTPFetcher(b.cfg, b.logger)
}

// Fetch retrieves location, retrying transient failures per the configured
// retryPolicy. Non-2xx responses and network errors are classified into
// *errs.InaccessibleContentError; truncation past MaxContentBytes is not
// (the document is simply too large, a permanent condition).
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) (Result, error) {
	for attempt := 0; ; attempt++ {
		result, statusCode, err := f.attempt(ctx, location)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return Result{}, errs.NewInaccessibleContentError(location, "context cancelled", ctx.Err())
		}
		if !f.retry.shouldRetry(statusCode, attempt) {
			return Result{}, err
		}

		delay := f.retry.delay(attempt)
		f.logger.Warn().Str("url", location).Int("attempt", attempt+1).Dur("delay", delay).Err(err).Msg("retrying fetch")
		select {
		case <-ctx.Done():
			return Result{}, errs.NewInaccessibleContentError(location, "context cancelled", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// attempt performs a single HTTP round trip. statusCode is 0 when the
// failure occurred before a response was received (DNS, dial, timeout).
func (f *HTTPFetcher) attempt(ctx context.Context, location string) (Result, int, error) {
	if _, err := url.ParseRequestURI(location); err != nil {
		return Result{}, 0, errs.NewInaccessibleContentError(location, "malformed URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Result{}, 0, errs.NewInaccessibleContentError(location, "failed to build request", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		reason := "network error"
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			reason = "timeout"
		}
		return Result{}, 0, errs.NewInaccessibleContentError(location, reason, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, resp.StatusCode, errs.NewInaccessibleContentError(
			location, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var reader io.Reader = resp.Body
	if f.cfg.MaxContentBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxContentBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Result{}, resp.StatusCode, errs.NewInaccessibleContentError(location, "failed reading body", err)
	}
	if f.cfg.MaxContentBytes > 0 && int64(len(body)) > f.cfg.MaxContentBytes {
		return Result{}, 0, fmt.Errorf("fetch: content at %q exceeds max size %d bytes", location, f.cfg.MaxContentBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if idx := indexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}

	return Result{Content: body, MimeType: mimeType}, resp.StatusCode, nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

var _ Fetcher = (*HTTPFetcher)(nil)

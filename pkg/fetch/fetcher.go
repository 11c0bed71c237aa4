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
	"os"
	"time"

	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// Fetcher resolves targets into payloads. It is safe for concurrent use by
// all workers of one scan run.
type Fetcher struct {
	cfg       Config
	client    *http.Client
	transport *http.Transport
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// New creates a Fetcher. An unparsable proxy URL is a configuration error.
// Proxy settings come only from cfg; the environment is never consulted.
func New(cfg Config, logger zerolog.Logger) (*Fetcher, error) {
	if cfg.MaxRetries < 0 {
		return nil, &types.ConfigError{Field: "retries", Err: fmt.Errorf("must be >= 0, got %d", cfg.MaxRetries)}
	}
	if cfg.BaseBackoff < 0 || cfg.MaxBackoff < 0 {
		return nil, &types.ConfigError{Field: "backoff", Err: errors.New("must not be negative")}
	}

	logger = logger.With().Str("component", "fetch").Logger()

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via --insecure
		},
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, &types.ConfigError{Field: "proxy", Err: fmt.Errorf("failed to parse proxy URL: %w", err)}
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, &types.ConfigError{Field: "proxy", Err: fmt.Errorf("proxy URL %q needs a scheme and host", cfg.ProxyURL)}
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Debug().Str("proxy", proxyURL.Redacted()).Msg("HTTP client configured with proxy")
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
	}

	f := &Fetcher{
		cfg:       cfg,
		transport: transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return f, nil
}

// Close releases idle connections held by the transport.
func (f *Fetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

// Fetch resolves one target. It never returns a Go error: failures are
// reported through FetchResult.Err.
func (f *Fetcher) Fetch(ctx context.Context, t types.Target) types.FetchResult {
	switch t.Kind {
	case types.KindText:
		return types.FetchResult{Target: t, Payload: []byte(t.Value)}
	case types.KindFile:
		return f.fetchFile(ctx, t)
	case types.KindURL:
		return f.fetchURL(ctx, t)
	default:
		return failed(t, &types.FetchError{Target: t, Err: fmt.Errorf("unsupported target kind %s", t.Kind)})
	}
}

func failed(t types.Target, err *types.FetchError) types.FetchResult {
	return types.FetchResult{Target: t, StatusCode: err.StatusCode, Attempts: err.Attempts, Err: err}
}

func (f *Fetcher) fetchFile(ctx context.Context, t types.Target) types.FetchResult {
	if err := ctx.Err(); err != nil {
		return failed(t, &types.FetchError{Target: t, Err: err})
	}

	info, err := os.Stat(t.Value)
	if err != nil {
		return failed(t, &types.FetchError{Target: t, Err: err})
	}
	if !info.Mode().IsRegular() {
		return failed(t, &types.FetchError{Target: t, Err: fmt.Errorf("%s is not a regular file", t.Value)})
	}

	fh, err := os.Open(t.Value)
	if err != nil {
		return failed(t, &types.FetchError{Target: t, Err: err})
	}
	defer fh.Close()

	payload, err := f.readBody(fh, t)
	if err != nil {
		return failed(t, &types.FetchError{Target: t, Err: fmt.Errorf("read: %w", err)})
	}
	return types.FetchResult{Target: t, Payload: payload}
}

func (f *Fetcher) fetchURL(ctx context.Context, t types.Target) types.FetchResult {
	if u, err := url.Parse(t.Value); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return failed(t, &types.FetchError{Target: t, Err: fmt.Errorf("invalid URL %q", t.Value)})
	}

	state := retryState{}
	for {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return failed(t, &types.FetchError{Target: t, Attempts: state.attempt, Err: contextErr(ctx, err)})
			}
		}

		state.attempt++
		status, payload, header, err := f.get(ctx, t)

		if ctx.Err() != nil {
			return failed(t, &types.FetchError{Target: t, StatusCode: status, Attempts: state.attempt, Err: ctx.Err()})
		}
		if err == nil && status < 400 {
			return types.FetchResult{Target: t, Payload: payload, StatusCode: status, Attempts: state.attempt}
		}

		retryable := err != nil || shouldRetryStatus(status)
		if err == nil {
			err = fmt.Errorf("unexpected status %d %s", status, http.StatusText(status))
		}
		if !retryable || state.attempt > f.cfg.MaxRetries {
			return failed(t, &types.FetchError{
				Target:     t,
				StatusCode: status,
				Attempts:   state.attempt,
				Temporary:  retryable,
				Err:        err,
			})
		}

		var hint time.Duration
		if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
			hint = parseRetryAfter(header, time.Now())
		}
		state.delay = backoff(f.cfg, state.attempt, hint)

		f.logger.Debug().
			Str("url", t.Value).
			Int("status_code", status).
			Int("attempt", state.attempt).
			Int("max_retries", f.cfg.MaxRetries).
			Dur("delay", state.delay).
			Err(err).
			Msg("Retrying request")

		if err := wait(ctx, state.delay); err != nil {
			return failed(t, &types.FetchError{Target: t, StatusCode: status, Attempts: state.attempt, Err: err})
		}
	}
}

// get performs one GET. A non-nil error means no usable response arrived.
func (f *Fetcher) get(ctx context.Context, t types.Target) (int, []byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Value, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil, resp.Header, nil
	}

	payload, err := f.readBody(resp.Body, t)
	if err != nil {
		return resp.StatusCode, nil, resp.Header, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, payload, resp.Header, nil
}

// readBody reads r fully, stopping at MaxContentSize when it is set.
func (f *Fetcher) readBody(r io.Reader, t types.Target) ([]byte, error) {
	if f.cfg.MaxContentSize <= 0 {
		return io.ReadAll(r)
	}
	payload, err := io.ReadAll(io.LimitReader(r, f.cfg.MaxContentSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > f.cfg.MaxContentSize {
		f.logger.Warn().
			Str("target", t.String()).
			Int64("max_size", f.cfg.MaxContentSize).
			Msg("Content exceeds max size, truncating")
		payload = payload[:f.cfg.MaxContentSize]
	}
	return payload, nil
}

// contextErr prefers the context's own error over the wrapper a limiter or
// transport returns for it.
func contextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

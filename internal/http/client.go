// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"strconv"
	"time"

	"github.com/wneessen/easyfatt-export/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 10

	// DefaultRetryWait is used when a rate limited response carries no usable header
	DefaultRetryWait = time.Second

	// MaxRetryWait is the longest wait we accept before the single retry
	MaxRetryWait = time.Minute
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with API requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) easyfatt-export/%s (+https://github.com/wneessen/easyfatt-export/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
	ErrRateLimited      = errors.New("request was rate limited by the remote API")
)

// Client is a type wrapper for the Go stdlib http.Client
type Client struct {
	*http.Client
	logger *logger.Logger
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
}

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: httpTransport,
	}
	return &Client{Client: httpClient, logger: logger, sleep: sleepContext, now: time.Now}
}

// Get performs a HTTP GET request for the given URL and json-unmarshals the response
// into target
func (h *Client) Get(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string) (int, error) {
	return h.GetWithTimeout(ctx, endpoint, target, query, headers, DefaultTimeout)
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and JSON-unmarshals
// the response into target. A response that signals rate limiting (429, or 403 with rate limit
// headers) is retried exactly once after the delay announced by the server.
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string, timeout time.Duration) (int, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNonPointerTarget
	}

	// Prepare URL and query parameters
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	var response *http.Response
	var cancel context.CancelFunc
	for attempt := 0; attempt < 2; attempt++ {
		response, cancel, err = h.get(ctx, reqURL.String(), headers, timeout)
		if err != nil {
			return 0, err
		}
		wait, limited := h.retryDelay(response)
		if !limited {
			break
		}
		h.drain(response.Body)
		cancel()
		if attempt > 0 {
			return response.StatusCode, fmt.Errorf("%w: status %d after retry", ErrRateLimited, response.StatusCode)
		}
		if wait > MaxRetryWait {
			return response.StatusCode, fmt.Errorf("%w: retry would require waiting %s", ErrRateLimited, wait)
		}
		h.logger.Warn("remote API rate limit hit, retrying once", slog.String("host", reqURL.Host),
			slog.Int("status", response.StatusCode), slog.Duration("wait", wait))
		if err = h.sleep(ctx, wait); err != nil {
			return response.StatusCode, err
		}
	}
	defer cancel()
	defer h.closeBody(response.Body)

	// Unmarshal the JSON API response into target
	if err = json.NewDecoder(response.Body).Decode(target); err != nil {
		return response.StatusCode, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return response.StatusCode, nil
}

func (h *Client) get(ctx context.Context, endpoint string, headers map[string]string, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		cancel()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		cancel()
		return nil, nil, errors.New("nil response received")
	}
	return response, cancel, nil
}

// retryDelay reports whether the response is a rate limit response and how long to wait
// before retrying. Retry-After (seconds or HTTP date) takes precedence over X-RateLimit-Reset
// (unix epoch seconds).
func (h *Client) retryDelay(response *http.Response) (time.Duration, bool) {
	if response.StatusCode != http.StatusTooManyRequests && response.StatusCode != http.StatusForbidden {
		return 0, false
	}
	// A plain 403 without any rate limit hint is an authorization problem
	if response.StatusCode == http.StatusForbidden && response.Header.Get("Retry-After") == "" &&
		response.Header.Get("X-RateLimit-Remaining") != "0" {
		return 0, false
	}

	if value := response.Header.Get("Retry-After"); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return max(time.Duration(secs)*time.Second, 0), true
		}
		if at, err := http.ParseTime(value); err == nil {
			return max(at.Sub(h.now()), 0), true
		}
	}
	if value := response.Header.Get("X-RateLimit-Reset"); value != "" {
		if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
			return max(time.Unix(epoch, 0).Sub(h.now()), 0), true
		}
	}
	return DefaultRetryWait, true
}

func (h *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		h.logger.Error("failed to close HTTP request body", logger.Err(err))
	}
}

// drain reads a bounded amount of the body so the connection can be reused for the retry
func (h *Client) drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	h.closeBody(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

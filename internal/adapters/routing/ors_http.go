package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"trip-estimator/internal/ports"
)

const (
	defaultMaxAttempts = 4
	defaultBackoff     = 200 * time.Millisecond

	// Error bodies are only kept for logs.
	maxErrorBody = 512
)

// providerError is a non-2xx answer from OpenRouteService. A 400 or 404 means
// the provider understood the request but cannot place or route it, so it
// unwraps to ports.ErrNoRoute for every endpoint.
type providerError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("ors %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

func (e *providerError) Unwrap() error {
	if e.Status == http.StatusBadRequest || e.Status == http.StatusNotFound {
		return ports.ErrNoRoute
	}
	return nil
}

// transient reports whether the same request may succeed later.
func (e *providerError) transient() bool {
	switch e.Status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// newRequest builds an authenticated request with the current API key.
func (o *ORSRouteResolver) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.key())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send executes one attempt. The returned response is always 2xx.
func (o *ORSRouteResolver) send(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &providerError{
			Endpoint: strings.TrimPrefix(req.URL.Path, "/"),
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry runs makeReq up to maxAttempts times. Network errors and
// transient provider statuses are retried with exponential backoff; anything
// else, including a rejected route, is returned at once.
func (o *ORSRouteResolver) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	wait := o.backoff
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.send(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == o.maxAttempts {
			break
		}

		o.log.Debug("ors request failed, retrying")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var pe *providerError
	if errors.As(err, &pe) {
		return pe.transient()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

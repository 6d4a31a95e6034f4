package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"lamptruth/internal/types"
)

// defaultUserAgent identifies the validator to the measurement providers.
const defaultUserAgent = "SurfLamp-Truth-Validator/1.0"

// SourceFetcher performs the actual source calls for the engine. It satisfies
// the reconcile.Fetcher contract: every outcome, including network failures,
// bad statuses, and malformed payloads, comes back as a RawSourceResponse
// carrying either a decoded payload or a tagged FetchError.
type SourceFetcher struct {
	client    *http.Client
	policy    FetchPolicy
	userAgent string
	breakers  *breakerSet
	logger    *slog.Logger
	sleepFn   func(time.Duration)
}

// FetcherOption configures a SourceFetcher.
type FetcherOption func(*SourceFetcher)

// WithUserAgent overrides the User-Agent header sent to sources.
func WithUserAgent(ua string) FetcherOption {
	return func(f *SourceFetcher) {
		f.userAgent = ua
	}
}

// WithSleepFunc overrides the sleep between retries. Intended for tests.
func WithSleepFunc(fn func(time.Duration)) FetcherOption {
	return func(f *SourceFetcher) {
		f.sleepFn = fn
	}
}

// NewSourceFetcher creates a SourceFetcher with the given HTTP client and
// policy. A nil client gets a plain http.Client; the per-call timeout comes
// from the policy, not the client.
func NewSourceFetcher(client *http.Client, policy FetchPolicy, logger *slog.Logger, opts ...FetcherOption) *SourceFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &SourceFetcher{
		client:    client,
		policy:    policy,
		userAgent: defaultUserAgent,
		breakers:  newBreakerSet(),
		logger:    logger,
		sleepFn:   time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs one source call and returns either the decoded JSON payload
// or a FetchError tag:
//
//   - fetch_timeout: the per-call budget elapsed before an answer arrived
//   - fetch_request_failed: transport failure, non-2xx status, or open breaker
//   - fetch_invalid_response: a 2xx answer whose body is not valid JSON
//
// The response is never partially valid; a decode failure discards the body.
func (f *SourceFetcher) Fetch(ctx context.Context, rawURL string) types.RawSourceResponse {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return fetchErr(types.ErrCodeFetchRequestFailed,
			fmt.Sprintf("invalid source URL %q", rawURL), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.policy.Timeout)
	defer cancel()

	f.logger.Info("making API call", "url", rawURL)

	resp, err := f.do(callCtx, rawURL, parsed.Host)
	if err != nil {
		return f.classify(callCtx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchErr(types.ErrCodeFetchRequestFailed,
			fmt.Sprintf("source returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.classify(callCtx, rawURL, err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fetchErr(types.ErrCodeFetchInvalidResponse,
			"source returned invalid JSON", err)
	}

	return types.RawSourceResponse{Payload: payload}
}

// do runs the GET with breaker wrapping and bounded retries on 429/5xx.
func (f *SourceFetcher) do(ctx context.Context, rawURL, host string) (*http.Response, error) {
	breaker := f.breakers.forHost(host)

	var lastErr error
	maxAttempts := 1 + f.policy.MaxRetries

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := breaker.Execute(func() (*http.Response, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if reqErr != nil {
				return nil, reqErr
			}
			req.Header.Set("User-Agent", f.userAgent)
			req.Header.Set("Accept", "application/json")

			r, doErr := f.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if retryable(r.StatusCode) {
				return r, statusError(r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if resp != nil {
			resp.Body.Close()
		}
		// An open breaker or an expired call budget ends the attempt loop.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if attempt < maxAttempts-1 {
			f.sleepFn(f.policy.backoffWait(attempt, resp))
		}
	}

	return nil, lastErr
}

// classify maps a transport-level error onto the FetchError taxonomy.
func (f *SourceFetcher) classify(ctx context.Context, rawURL string, err error) types.RawSourceResponse {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fetchErr(types.ErrCodeFetchTimeout,
			fmt.Sprintf("API call timed out after %s", f.policy.Timeout), err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fetchErr(types.ErrCodeFetchRequestFailed,
			fmt.Sprintf("circuit open for %s; source considered unavailable", rawURL), err)
	}
	return fetchErr(types.ErrCodeFetchRequestFailed, "request failed", err)
}

// fetchErr builds the error variant of a RawSourceResponse.
func fetchErr(code types.ErrorCode, message string, err error) types.RawSourceResponse {
	return types.RawSourceResponse{
		Err: types.NewAppError(code, message, err),
	}
}

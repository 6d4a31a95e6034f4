// Package external is the transport boundary between the validation engine
// and the third-party measurement sources. All outbound calls are plain HTTP
// GETs routed through a shared resilience layer: per-host circuit breaking,
// bounded retries with jittered backoff, and uniform mapping of every failure
// mode onto the FetchError taxonomy. Nothing in this package ever raises a
// transport condition as a Go panic or an unclassified error.
package external

import (
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// FetchPolicy configures timeout and retry behavior for source calls.
type FetchPolicy struct {
	// Timeout bounds one whole call, attempts included. A source that does
	// not answer within it is reported as fetch_timeout.
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultFetchPolicy returns the standard policy for source calls: the
// 15 second per-call budget with two quick retries inside it.
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// breakerSet hands out one circuit breaker per source host, lazily. Sources
// fail independently, so one flapping provider must not open the circuit for
// the others.
type breakerSet struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerSet() *breakerSet {
	return &breakerSet{
		breakers: make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
}

// forHost returns the breaker for the given host, creating it on first use.
func (b *breakerSet) forHost(host string) *gobreaker.CircuitBreaker[*http.Response] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	b.breakers[host] = cb
	return cb
}

// retryable reports whether a response status warrants another attempt.
// Only 429 and 5xx are retried; other statuses are final.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoffWait computes the wait before the next attempt. A parseable
// Retry-After header wins, clamped to MaxWait; otherwise exponential backoff
// with full jitter over [MinWait, MinWait*2^attempt].
func (p FetchPolicy) backoffWait(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > p.MaxWait {
					wait = p.MaxWait
				}
				return wait
			}
		}
	}

	base := float64(p.MinWait) * math.Pow(2, float64(attempt))
	if base > float64(p.MaxWait) {
		base = float64(p.MaxWait)
	}
	minWait := float64(p.MinWait)
	if base <= minWait {
		return p.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

// statusError is the sentinel the breaker sees for retryable statuses.
func statusError(status int) error {
	return fmt.Errorf("source returned %d", status)
}

package external

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFetchPolicy(t *testing.T) {
	p := DefaultFetchPolicy()
	assert.Equal(t, 15*time.Second, p.Timeout)
	assert.Equal(t, 2, p.MaxRetries)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(http.StatusTooManyRequests))
	assert.True(t, retryable(http.StatusInternalServerError))
	assert.True(t, retryable(http.StatusBadGateway))

	assert.False(t, retryable(http.StatusOK))
	assert.False(t, retryable(http.StatusBadRequest))
	assert.False(t, retryable(http.StatusNotFound))
}

func TestBackoffWaitRespectsRetryAfter(t *testing.T) {
	p := FetchPolicy{MinWait: 100 * time.Millisecond, MaxWait: 2 * time.Second}

	resp := &http.Response{Header: http.Header{"Retry-After": []string{"1"}}}
	assert.Equal(t, time.Second, p.backoffWait(0, resp))

	// Clamped to MaxWait.
	resp = &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	assert.Equal(t, 2*time.Second, p.backoffWait(0, resp))
}

func TestBackoffWaitBounds(t *testing.T) {
	p := FetchPolicy{MinWait: 100 * time.Millisecond, MaxWait: 2 * time.Second}

	for attempt := 0; attempt < 6; attempt++ {
		wait := p.backoffWait(attempt, nil)
		assert.GreaterOrEqual(t, wait, p.MinWait, "attempt %d", attempt)
		assert.LessOrEqual(t, wait, p.MaxWait, "attempt %d", attempt)
	}
}

func TestBreakerSetReusesPerHost(t *testing.T) {
	set := newBreakerSet()

	a := set.forHost("marine.example.com")
	b := set.forHost("marine.example.com")
	c := set.forHost("wind.example.com")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

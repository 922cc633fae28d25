package http

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("uses default configuration when no options are provided", func(t *testing.T) {
		client := NewClient()

		assert.Equal(t, 5*time.Second, client.HTTPClient.Timeout, "default timeout should be 5s")
		assert.Equal(t, 1*time.Second, client.RetryWaitMin, "default retryWaitMin should be 1s")
		assert.Equal(t, 5*time.Second, client.RetryWaitMax, "default retryWaitMax should be 5s")
		assert.Equal(t, 2, client.RetryMax, "default retryMax should be 2")
	})

	t.Run("applies all custom options correctly", func(t *testing.T) {
		client := NewClient(
			WithTimeout(9*time.Second),
			WithRetryWaitMin(111*time.Millisecond),
			WithRetryWaitMax(3*time.Second),
			WithRetryMax(7),
		)

		assert.Equal(t, 9*time.Second, client.HTTPClient.Timeout)
		assert.Equal(t, 111*time.Millisecond, client.RetryWaitMin)
		assert.Equal(t, 3*time.Second, client.RetryWaitMax)
		assert.Equal(t, 7, client.RetryMax)
	})

	t.Run("injects configured headers into every request", func(t *testing.T) {
		var gotKey atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey.Store(r.Header.Get("TRON-PRO-API-KEY"))
		}))
		defer server.Close()

		client := NewClient(WithHeaders(map[string]string{"TRON-PRO-API-KEY": "secret"}))

		res, err := client.StandardClient().Get(server.URL)
		require.NoError(t, err)
		res.Body.Close()

		assert.Equal(t, "secret", gotKey.Load())
	})

	t.Run("does not retry on HTTP 429", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(WithRetryMax(3))

		res, err := client.StandardClient().Get(server.URL)
		require.NoError(t, err)
		res.Body.Close()

		assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})
}

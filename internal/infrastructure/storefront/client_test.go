package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse-ingestion-layer/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	client := NewClientWithOptions(
		server.Client(),
		NewRateLimiterWithInterval(time.Millisecond, logger),
		RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond},
		logger,
	)
	return client, strings.TrimPrefix(server.URL, "https://")
}

func TestFetchProductsFollowsPagination(t *testing.T) {
	var storeHost string
	var requests []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-Shopify-Access-Token"))
		requests = append(requests, r.URL.RequestURI())

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<https://%s/admin/api/2024-07/products.json?limit=250&page_info=cursor2>; rel="next"`, storeHost))
			fmt.Fprint(w, `{"products":[{"id":1,"title":"First"},{"id":2,"title":"Second"}]}`)
			return
		}
		// Last page: a previous link only.
		w.Header().Set("Link", fmt.Sprintf(`<https://%s/admin/api/2024-07/products.json?limit=250&page_info=cursor1>; rel="previous"`, storeHost))
		fmt.Fprint(w, `{"products":[{"id":3,"title":"Third"}]}`)
	})
	client, host := newTestClient(t, handler)
	storeHost = host

	var seen []int64
	err := client.FetchProducts(context.Background(), host, "secret-token", func(page []domain.ProductPayload) error {
		for _, p := range page {
			seen = append(seen, p.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1], "page_info=cursor2")
}

func TestFetchOrdersRequestsAnyStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		fmt.Fprint(w, `{"orders":[{"id":10,"total_price":"12.50","currency":"USD"}]}`)
	})
	client, host := newTestClient(t, handler)

	var seen []domain.OrderPayload
	err := client.FetchOrders(context.Background(), host, "tok", func(page []domain.OrderPayload) error {
		seen = append(seen, page...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].TotalPrice.Equal(decimal.RequireFromString("12.50")))
}

func TestFetchRetriesThrottledPages(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0.001")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"customers":[{"id":7,"first_name":"Ada"}]}`)
	})
	client, host := newTestClient(t, handler)

	var seen []domain.CustomerPayload
	err := client.FetchCustomers(context.Background(), host, "tok", func(page []domain.CustomerPayload) error {
		seen = append(seen, page...)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchExhaustedRetriesReturnTypedError(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, host := newTestClient(t, handler)

	err := client.FetchProducts(context.Background(), host, "tok", func([]domain.ProductPayload) error {
		t.Fatal("callback must not run on a failed fetch")
		return nil
	})
	require.Error(t, err)

	var fetchErr *domain.UpstreamFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "products", fetchErr.Resource)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	client, host := newTestClient(t, handler)

	err := client.FetchProducts(context.Background(), host, "bad-token", func([]domain.ProductPayload) error {
		return nil
	})
	var fetchErr *domain.UpstreamFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchCallbackErrorStopsIteration(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Link", `<https://example.com/next>; rel="next"`)
		fmt.Fprint(w, `{"products":[{"id":1}]}`)
	})
	client, host := newTestClient(t, handler)

	sentinel := errors.New("stop")
	err := client.FetchProducts(context.Background(), host, "tok", func([]domain.ProductPayload) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateWebhook(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/webhooks.json"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"webhook":{"id":42}}`)
	})
	client, host := newTestClient(t, handler)

	err := client.CreateWebhook(context.Background(), host, "tok", "orders/create", "https://app.example.com/webhooks/abc")
	assert.NoError(t, err)
}

func TestCreateWebhookFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	client, host := newTestClient(t, handler)

	err := client.CreateWebhook(context.Background(), host, "tok", "orders/create", "not-a-url")
	var subErr *domain.UpstreamSubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "orders/create", subErr.Topic)
	assert.Equal(t, http.StatusUnprocessableEntity, subErr.StatusCode)
}

func TestParseNextLink(t *testing.T) {
	next := parseNextLink(`<https://x.myshopify.com/admin/api/2024-07/products.json?page_info=prev>; rel="previous", <https://x.myshopify.com/admin/api/2024-07/products.json?page_info=abc>; rel="next"`)
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-07/products.json?page_info=abc", next)

	assert.Empty(t, parseNextLink(`<https://x.myshopify.com/admin/api/2024-07/products.json?page_info=prev>; rel="previous"`))
	assert.Empty(t, parseNextLink(""))
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	limiter := NewRateLimiterWithInterval(20*time.Millisecond, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiterWithInterval(time.Hour, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

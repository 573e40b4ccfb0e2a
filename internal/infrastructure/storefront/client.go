package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

const (
	apiVersion      = "2024-07"
	defaultPageSize = 250
)

// Client is the Admin REST API adapter. It walks cursor-paginated resource
// collections, rate limits itself, and retries throttled or failing
// requests before surfacing a typed fetch error.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a client with default rate limiting and retry.
func NewClient(logger zerolog.Logger) *Client {
	return NewClientWithOptions(nil, NewRateLimiter(logger), DefaultRetryConfig(), logger)
}

// NewClientWithOptions creates a client with explicit rate limiting, retry
// and HTTP transport settings.
func NewClientWithOptions(
	httpClient *http.Client,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	logger zerolog.Logger,
) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// FetchProducts walks every page of the store's products.
func (c *Client) FetchProducts(ctx context.Context, storeURL, accessToken string, fn func([]domain.ProductPayload) error) error {
	return fetchPaged[domain.ProductPayload](ctx, c, storeURL, accessToken, "products", "", fn)
}

// FetchCustomers walks every page of the store's customers.
func (c *Client) FetchCustomers(ctx context.Context, storeURL, accessToken string, fn func([]domain.CustomerPayload) error) error {
	return fetchPaged[domain.CustomerPayload](ctx, c, storeURL, accessToken, "customers", "", fn)
}

// FetchOrders walks every page of the store's orders, regardless of status.
func (c *Client) FetchOrders(ctx context.Context, storeURL, accessToken string, fn func([]domain.OrderPayload) error) error {
	return fetchPaged[domain.OrderPayload](ctx, c, storeURL, accessToken, "orders", "status=any", fn)
}

// fetchPaged drives Link-header (page_info) pagination for one resource,
// handing each decoded page to fn until the upstream stops returning a next
// link.
func fetchPaged[T any](
	ctx context.Context,
	c *Client,
	storeURL, accessToken, resource, extraQuery string,
	fn func([]T) error,
) error {
	url := fmt.Sprintf("https://%s/admin/api/%s/%s.json?limit=%d", storeURL, apiVersion, resource, defaultPageSize)
	if extraQuery != "" {
		url += "&" + extraQuery
	}

	for url != "" {
		body, next, err := c.getPage(ctx, url, accessToken, resource)
		if err != nil {
			return err
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return &domain.UpstreamFetchError{Resource: resource, Err: err}
		}
		var records []T
		if raw, ok := envelope[resource]; ok {
			if err := json.Unmarshal(raw, &records); err != nil {
				return &domain.UpstreamFetchError{Resource: resource, Err: err}
			}
		}

		if err := fn(records); err != nil {
			return err
		}
		url = next
	}
	return nil
}

// getPage fetches one page, retrying 429 and 5xx responses with backoff,
// and returns the body plus the next-page URL from the Link header.
func (c *Client) getPage(ctx context.Context, url, accessToken, resource string) ([]byte, string, error) {
	var lastStatus int
	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, "", &domain.UpstreamFetchError{Resource: resource, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", &domain.UpstreamFetchError{Resource: resource, Err: err}
		}
		req.Header.Set("X-Shopify-Access-Token", accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", &domain.UpstreamFetchError{Resource: resource, Err: err}
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, "", &domain.UpstreamFetchError{Resource: resource, Err: err}
			}
			return body, parseNextLink(resp.Header.Get("Link")), nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastStatus = resp.StatusCode

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt >= c.retryConfig.MaxRetries {
			break
		}

		delay := c.retryConfig.backoff(attempt)
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.ParseFloat(after, 64); err == nil {
				delay = time.Duration(secs * float64(time.Second))
			}
		}
		c.logger.Warn().
			Str("resource", resource).
			Int("status", resp.StatusCode).
			Dur("backoff", delay).
			Msg("Retrying throttled or failing page fetch")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, "", &domain.UpstreamFetchError{Resource: resource, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return nil, "", &domain.UpstreamFetchError{Resource: resource, StatusCode: lastStatus}
}

// parseNextLink extracts the rel="next" URL from a Shopify Link header.
// The header carries one or two entries of the form
// <https://...page_info=abc>; rel="previous|next".
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// CreateWebhook registers one topic subscription pointed at address.
func (c *Client) CreateWebhook(ctx context.Context, storeURL, accessToken, topic, address string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"webhook": map[string]string{
			"topic":   topic,
			"address": address,
			"format":  "json",
		},
	})
	if err != nil {
		return &domain.UpstreamSubscriptionError{Topic: topic, Err: err}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return &domain.UpstreamSubscriptionError{Topic: topic, Err: err}
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/webhooks.json", storeURL, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &domain.UpstreamSubscriptionError{Topic: topic, Err: err}
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamSubscriptionError{Topic: topic, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return &domain.UpstreamSubscriptionError{Topic: topic, StatusCode: resp.StatusCode}
	}
	return nil
}

var _ ports.StorefrontGateway = (*Client)(nil)

package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload marks a webhook body or API record that failed strict
// decoding. The event is dropped and logged; it never aborts the ingestion
// channel.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrUnknownTenant marks a webhook or sync request referencing a tenant id
// that is not in the store. Treated as a logged no-op.
var ErrUnknownTenant = errors.New("unknown tenant")

// UpstreamFetchError reports a failed page fetch during bulk sync. The
// affected resource's sync aborts; other resources may still proceed.
type UpstreamFetchError struct {
	Resource   string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch of %s failed: status %d", e.Resource, e.StatusCode)
	}
	return fmt.Sprintf("upstream fetch of %s failed: %v", e.Resource, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// UpstreamSubscriptionError reports a failed webhook subscription request
// for one topic. Registration of the remaining topics continues.
type UpstreamSubscriptionError struct {
	Topic      string
	StatusCode int
	Err        error
}

func (e *UpstreamSubscriptionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook subscription for %s failed: status %d", e.Topic, e.StatusCode)
	}
	return fmt.Sprintf("webhook subscription for %s failed: %v", e.Topic, e.Err)
}

func (e *UpstreamSubscriptionError) Unwrap() error { return e.Err }

package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyValidSignature(t *testing.T) {
	verifier := NewWebhookVerifier("shhh")
	payload := []byte(`{"id":1001,"total_price":"49.90"}`)

	assert.NoError(t, verifier.Verify(payload, signPayload("shhh", payload)))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewWebhookVerifier("shhh")
	payload := []byte(`{"id":1001}`)

	assert.Error(t, verifier.Verify(payload, signPayload("other-secret", payload)))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	verifier := NewWebhookVerifier("shhh")
	signature := signPayload("shhh", []byte(`{"id":1001}`))

	assert.Error(t, verifier.Verify([]byte(`{"id":9999}`), signature))
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	verifier := NewWebhookVerifier("shhh")

	assert.Error(t, verifier.Verify([]byte(`{}`), ""))
}

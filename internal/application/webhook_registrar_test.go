package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"storepulse-ingestion-layer/internal/domain"
)

func TestRegisterAllSubscribesEveryTopic(t *testing.T) {
	gateway := &fakeGateway{}
	registrar := NewWebhookRegistrar(gateway, zerolog.Nop(), "https://app.example.com/webhooks")
	tenant := &domain.Tenant{ID: uuid.New(), StoreURL: "acme.myshopify.com", AccessToken: "tok"}

	registered := registrar.RegisterAll(context.Background(), tenant)

	assert.Equal(t, len(domain.SubscriptionTopics), registered)
	assert.ElementsMatch(t, domain.SubscriptionTopics, gateway.registered)
}

func TestRegisterAllContinuesPastFailures(t *testing.T) {
	gateway := &fakeGateway{
		failTopics: map[string]error{
			domain.TopicOrdersCreate: &domain.UpstreamSubscriptionError{Topic: domain.TopicOrdersCreate, StatusCode: 422},
		},
	}
	registrar := NewWebhookRegistrar(gateway, zerolog.Nop(), "https://app.example.com/webhooks")
	tenant := &domain.Tenant{ID: uuid.New(), StoreURL: "acme.myshopify.com", AccessToken: "tok"}

	registered := registrar.RegisterAll(context.Background(), tenant)

	assert.Equal(t, len(domain.SubscriptionTopics)-1, registered)
	assert.NotContains(t, gateway.registered, domain.TopicOrdersCreate)
	assert.Contains(t, gateway.registered, domain.TopicAppUninstalled)
}

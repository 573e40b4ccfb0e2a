package storefront

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"

	"storepulse-ingestion-layer/internal/ports"
)

// OAuthExchanger handles the OAuth leg of onboarding: building the
// authorization URL and trading the callback code for a permanent access
// token.
type OAuthExchanger struct {
	apiKey string
	app    goshopify.App
}

// NewOAuthExchanger creates an exchanger for the given app credentials.
func NewOAuthExchanger(apiKey, apiSecret string) *OAuthExchanger {
	return &OAuthExchanger{
		apiKey: apiKey,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
	}
}

// AuthorizeURL builds the merchant-facing authorization URL. Scopes are
// comma-separated with no spaces, as the platform requires.
func (e *OAuthExchanger) AuthorizeURL(shop string, scopes []string, redirectURI, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		e.apiKey,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

// ExchangeToken trades an authorization code for an offline access token.
func (e *OAuthExchanger) ExchangeToken(ctx context.Context, shop, code string) (string, error) {
	token, err := e.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

var _ ports.TokenExchanger = (*OAuthExchanger)(nil)

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/application/webhook_handlers"
	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/infrastructure/cache"
	"storepulse-ingestion-layer/internal/infrastructure/metrics"
	"storepulse-ingestion-layer/internal/infrastructure/repository"
	"storepulse-ingestion-layer/internal/infrastructure/storefront"
	"storepulse-ingestion-layer/internal/ports"
)

// processTimeout bounds webhook processing after the delivery has been
// acknowledged.
const processTimeout = 30 * time.Second

var oauthScopes = []string{"read_products", "read_customers", "read_orders", "read_checkouts"}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	// Get configuration from environment
	databaseURL := getenv("DATABASE_URL", "host=localhost user=postgres dbname=storepulse sslmode=disable")
	mongoURI := getenv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDatabase := getenv("MONGODB_DATABASE", "storepulse")
	appURL := getenv("APP_URL", "http://localhost:8080")
	clientURL := getenv("CLIENT_URL", "http://localhost:3000")

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	// Connect to Postgres and migrate the tenant schema
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	store := repository.NewGormTenantStore(db)
	if err := store.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate schema")
	}

	// Connect to MongoDB for OAuth sessions and the webhook delivery log
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(mongoDatabase)

	sessionRepo := repository.NewSessionRepository(mongoDB)
	webhookLog := repository.NewWebhookLogRepository(mongoDB)

	// Redis-backed webhook delivery dedup; optional, ingestion stays
	// correct without it because the write paths are idempotent.
	var deliveryCache ports.DeliveryCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		deliveryCache = cache.NewRedisDeliveryCache(redisClient)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, webhook delivery dedup disabled")
	}

	// Storefront API adapters
	gateway := storefront.NewClient(logger)
	exchanger := storefront.NewOAuthExchanger(apiKey, apiSecret)
	verifier := storefront.NewWebhookVerifier(apiSecret)

	// Application services
	ingestService := application.NewIngestService(store, logger)
	registrar := application.NewWebhookRegistrar(gateway, logger, appURL+"/webhooks")
	tenantService := application.NewTenantService(store, registrar, logger)
	syncService := application.NewSyncService(store, gateway, ingestService, logger)

	// Webhook dispatcher and topic handlers
	dispatcher := application.NewWebhookDispatcher(logger)
	dispatcher.RegisterHandler(webhook_handlers.NewProductHandler(ingestService, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(ingestService, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(ingestService, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewCheckoutHandler(ingestService, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(ingestService, logger))

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Get("/auth/install", oauthInstallHandler(sessionRepo, exchanger, appURL, clientURL, logger))
	r.Get("/auth/callback", oauthCallbackHandler(sessionRepo, exchanger, tenantService, clientURL, logger))

	r.Post("/webhooks/{tenantID}", webhookHandler(store, dispatcher, webhookLog, deliveryCache, verifier, logger))

	r.Post("/tenants/{tenantID}/sync", syncHandler(syncService, logger))
	r.Delete("/tenants/{tenantID}", deleteTenantHandler(tenantService, logger))
	r.Get("/tenants/{tenantID}/overview", overviewHandler(tenantService, logger))
	r.Get("/tenants/{tenantID}/checkout-stats", checkoutStatsHandler(tenantService, logger))

	port := getenv("PORT", "8080")
	logger.Info().Str("port", port).Msg("Starting ingestion API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// oauthInstallHandler starts the OAuth flow for a store.
func oauthInstallHandler(
	sessions ports.SessionStore,
	exchanger *storefront.OAuthExchanger,
	appURL, clientURL string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		// Random state for CSRF protection
		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to generate state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		state := hex.EncodeToString(stateBytes)

		returnURL := r.URL.Query().Get("return_url")
		if returnURL == "" {
			returnURL = clientURL
		}

		session := &domain.Session{
			Shop:      shop,
			State:     state,
			ReturnURL: returnURL,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}
		if err := sessions.CreateSession(ctx, session); err != nil {
			logger.Error().Err(err).Msg("Failed to create session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authURL := exchanger.AuthorizeURL(shop, oauthScopes, appURL+"/auth/callback", state)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the OAuth flow: state check, token
// exchange, tenant upsert plus webhook registration, then a redirect back
// to the dashboard.
func oauthCallbackHandler(
	sessions ports.SessionStore,
	exchanger *storefront.OAuthExchanger,
	tenantService *application.TenantService,
	clientURL string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if shop == "" || code == "" || state == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		session, err := sessions.GetSession(ctx, state)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to get session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if session == nil || session.Shop != shop {
			http.Error(w, "Invalid session", http.StatusUnauthorized)
			return
		}
		sessions.DeleteSession(ctx, state)

		token, err := exchanger.ExchangeToken(ctx, shop, code)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		tenant, err := tenantService.Onboard(ctx, shop, token)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to onboard tenant")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		returnURL := session.ReturnURL
		if returnURL == "" {
			returnURL = clientURL
		}
		redirectURL := fmt.Sprintf("%s/shopify/return?newTenantId=%s&shop=%s",
			returnURL,
			url.QueryEscape(tenant.ID.String()),
			url.QueryEscape(tenant.StoreURL),
		)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// webhookHandler verifies and acknowledges a delivery, then processes it
// asynchronously. The platform's retry clock is short; holding the response
// open while the store works only invites redeliveries racing the in-flight
// write. Failures after the ack are logged and left to the platform's
// redelivery or the next bulk sync.
func webhookHandler(
	store ports.TenantStore,
	dispatcher *application.WebhookDispatcher,
	webhookLog ports.WebhookLog,
	deliveryCache ports.DeliveryCache,
	verifier *storefront.WebhookVerifier,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := verifier.Verify(payload, r.Header.Get("X-Shopify-Hmac-SHA256")); err != nil {
			logger.Warn().Err(err).Stringer("tenantId", tenantID).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		event := &domain.WebhookEvent{
			DeliveryID: r.Header.Get("X-Shopify-Webhook-Id"),
			Topic:      topic,
			TenantID:   tenantID,
			ShopDomain: r.Header.Get("X-Shopify-Shop-Domain"),
			Payload:    payload,
			ReceivedAt: time.Now(),
		}
		metrics.WebhooksReceived.WithLabelValues(topic).Inc()

		// Acknowledge before processing
		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})

		go processWebhook(store, dispatcher, webhookLog, deliveryCache, logger, event)
	}
}

// processWebhook runs after the delivery has been acknowledged: any error
// here is terminal for the delivery and only logged.
func processWebhook(
	store ports.TenantStore,
	dispatcher *application.WebhookDispatcher,
	webhookLog ports.WebhookLog,
	deliveryCache ports.DeliveryCache,
	logger zerolog.Logger,
	event *domain.WebhookEvent,
) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if deliveryCache != nil && event.DeliveryID != "" {
		first, err := deliveryCache.MarkDelivery(ctx, event.DeliveryID)
		if err != nil {
			// Dedup is best-effort; idempotent writes absorb duplicates.
			logger.Warn().Err(err).Msg("Delivery dedup unavailable, processing anyway")
		} else if !first {
			metrics.WebhooksDuplicate.Inc()
			logger.Debug().
				Str("deliveryId", event.DeliveryID).
				Str("topic", event.Topic).
				Msg("Skipping duplicate webhook delivery")
			return
		}
	}

	if err := webhookLog.LogDelivery(ctx, event); err != nil {
		logger.Error().Err(err).Msg("Failed to log webhook delivery")
	}

	if _, err := store.GetTenant(ctx, event.TenantID); err != nil {
		if errors.Is(err, domain.ErrUnknownTenant) {
			logger.Warn().
				Stringer("tenantId", event.TenantID).
				Str("topic", event.Topic).
				Msg("Webhook for unknown tenant ignored")
			return
		}
		logger.Error().Err(err).Stringer("tenantId", event.TenantID).Msg("Failed to resolve tenant for webhook")
		return
	}

	if err := dispatcher.Dispatch(ctx, event); err != nil {
		logger.Error().
			Err(err).
			Str("topic", event.Topic).
			Stringer("tenantId", event.TenantID).
			Msg("Webhook processing failed after ack")
	}
}

// syncHandler triggers the bulk path for one tenant and returns the
// per-resource summary.
func syncHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		summary, err := syncService.SyncTenant(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownTenant) {
				http.Error(w, "tenant not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Stringer("tenantId", tenantID).Msg("Sync failed")
			http.Error(w, "sync failed", http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if !summary.Succeeded {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, summary)
	}
}

func deleteTenantHandler(tenantService *application.TenantService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		if err := tenantService.Delete(r.Context(), tenantID); err != nil {
			if errors.Is(err, domain.ErrUnknownTenant) {
				http.Error(w, "tenant not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Stringer("tenantId", tenantID).Msg("Failed to delete tenant")
			http.Error(w, "could not delete tenant", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "tenant and all associated data deleted"})
	}
}

func overviewHandler(tenantService *application.TenantService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		overview, err := tenantService.Overview(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownTenant) {
				http.Error(w, "tenant not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Stringer("tenantId", tenantID).Msg("Failed to load overview")
			http.Error(w, "could not load overview", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func checkoutStatsHandler(tenantService *application.TenantService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		stats, err := tenantService.CheckoutStats(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownTenant) {
				http.Error(w, "tenant not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Stringer("tenantId", tenantID).Msg("Failed to load checkout stats")
			http.Error(w, "could not load checkout stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

package app

import (
	"context"
	"errors"

	"identity-service/internal/api"
	"identity-service/internal/auth/reconcile"
	"identity-service/internal/auth/token"
	"identity-service/internal/config"
	"identity-service/internal/event"
	"identity-service/internal/idp/keycloak"
	"identity-service/internal/lifecycle"
	"identity-service/internal/lookup"
	"identity-service/internal/middleware"
	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupHTTP(ctx context.Context, cfg config.Config, log *zap.Logger) (*gin.Engine, *event.Publisher, func() error, error) {

	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := user.NewPostgresStore(infra.DB)
	engine := reconcile.NewEngine(store, log)

	verifier, err := setupVerifier(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	idpGateway, err := keycloak.New(
		ctx,
		cfg.KeycloakBaseURL,
		cfg.KeycloakRealm,
		cfg.KeycloakAdminClientID,
		cfg.KeycloakAdminClientSecret,
		cfg.KeycloakTimeout,
		log,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	sink := event.NewRedisSink(infra.Redis.Client)
	publisher := event.NewPublisher(
		sink,
		cfg.EventTopic,
		cfg.EventQueueSize,
		cfg.EventWorkers,
		cfg.EventPublishTimeout,
		log,
	)

	orchestrator := lifecycle.NewOrchestrator(store, idpGateway, publisher, log)

	breaker := lookup.NewBreaker(lookup.BreakerConfig{
		Name:             "user-service",
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		HalfOpenCalls:    cfg.BreakerHalfOpenCalls,
	}, log)
	lookupGateway := lookup.NewGateway(
		lookup.NewHTTPClient(cfg.UserServiceBaseURL, cfg.UserServiceTimeout),
		breaker,
		log,
	)

	authMiddleware := middleware.NewAuthMiddleware(verifier, engine, log)

	if err := api.RegisterValidations(); err != nil {
		return nil, nil, nil, err
	}
	handler := api.NewHandler(orchestrator, lookupGateway, log)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	handler.RegisterRoutes(router, authMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, publisher, func() error {
		if err := infra.Redis.Close(); err != nil {
			return err
		}
		return infra.DB.Close()
	}, nil
}

func setupVerifier(ctx context.Context, cfg config.Config) (token.Verifier, error) {
	if cfg.KeycloakIssuer != "" {
		return token.NewOIDCVerifier(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID)
	}
	if cfg.TokenSigningKey != "" {
		return token.NewStaticVerifier(cfg.TokenSigningKey)
	}
	return nil, errors.New("either KEYCLOAK_ISSUER or TOKEN_SIGNING_KEY must be set")
}

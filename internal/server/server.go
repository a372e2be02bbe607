package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"cake-haven/internal/cart"
	"cake-haven/internal/config"
	custommiddleware "cake-haven/internal/middleware"
	"cake-haven/internal/payment"
	"cake-haven/internal/repository"
	"cake-haven/internal/service"
	"cake-haven/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware([]string{cfg.Server.BaseURL}, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Cart state lives in Redis, keyed by the browser-held cart id.
	cartStore := cart.NewRedisStore(redisClient)

	// Payment processor clients
	sessionClient := payment.NewStripeSessionClient(cfg.Stripe.SecretKey)
	eventVerifier := payment.NewStripeEventVerifier(cfg.Stripe.WebhookSecret)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret, cfg.Admin.InviteCodes)
	checkoutService := service.NewCheckoutService(orderRepo, sessionClient, cfg.Server.BaseURL, cfg.Checkout.PollInterval, cfg.Checkout.PollMaxAttempts)
	paymentsService := service.NewPaymentsService(eventVerifier, orderRepo, productRepo, logger)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(productRepo, logger)
	cartHandler := transport.NewCartHandler(cartStore, productRepo, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, cartStore, logger)
	webhookHandler := transport.NewWebhookHandler(paymentsService, logger)
	adminHandler := transport.NewAdminHandler(orderRepo, productRepo, cfg.Admin.LowStockThreshold, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	// Checkout is the only endpoint worth rate limiting; it creates rows
	// and talks to the payment processor.
	checkoutLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		KeyPrefix:         "checkout",
	}, logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	cartHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router, checkoutLimiter)
	webhookHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

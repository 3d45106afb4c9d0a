package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"merchstore/internal/cache"
	"merchstore/internal/config"
	custommiddleware "merchstore/internal/middleware"
	"merchstore/internal/payment"
	"merchstore/internal/repository"
	"merchstore/internal/service"
	"merchstore/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      *sql.DB
	redis   *redis.Client
	gallery *service.GalleryService
	sweeper *service.FulfillmentSweeper
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, dbHealth func() map[string]string) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": dbHealth(),
		})
	})

	// Capabilities start optimistic; main probes the real shape before
	// the server starts accepting traffic.
	caps := repository.NewSchemaCapabilities(true)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db, caps)
	productColorRepo := repository.NewProductColorRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderItemRepo := repository.NewOrderItemRepository(db)

	// Initialize services
	kv := cache.NewRedisKV(redisClient)
	stockValidator := service.NewStockValidator(productRepo, logger)
	checkoutService := service.NewCheckoutService(orderRepo, orderItemRepo, productRepo, stockValidator, logger)
	orderReader := service.NewOrderReader(orderRepo, orderItemRepo, productRepo, logger)
	galleryService := service.NewGalleryService(productRepo, caps, kv, logger)
	sweeper := service.NewFulfillmentSweeper(
		orderItemRepo,
		productRepo,
		logger,
		cfg.Checkout.SweepInterval,
		cfg.Checkout.SweepGrace,
		cfg.Checkout.SweepBatchSize,
	)
	paymentClient := payment.NewClient(cfg.Payment, logger)

	// Initialize handlers
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, stockValidator, paymentClient, logger)
	orderHandler := transport.NewOrderHandler(orderReader, orderRepo, logger)
	productHandler := transport.NewProductHandler(productRepo, productColorRepo, galleryService, logger)

	// Create auth middleware
	optionalAuth := custommiddleware.OptionalAuthMiddleware(cfg.JWT.Secret, logger)
	requireAuth := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)

	// Register routes
	var checkoutExtras []func(http.Handler) http.Handler
	if !cfg.Checkout.RateLimitDisabled {
		checkoutExtras = append(checkoutExtras, custommiddleware.RateLimitMiddleware(
			redisClient,
			custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.Checkout.RateLimitPerMin,
				Window:            time.Minute,
				KeyPrefix:         "ratelimit:checkout",
			},
			logger,
		))
	}
	checkoutHandler.RegisterRoutes(router, optionalAuth, checkoutExtras...)
	orderHandler.RegisterRoutes(router, optionalAuth, requireAuth, requireAdmin)
	productHandler.RegisterRoutes(router, requireAuth, requireAdmin)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		gallery: galleryService,
		sweeper: sweeper,
	}

	return server
}

// ProbeGallery refreshes the schema capability set before traffic arrives.
func (s *Server) ProbeGallery(ctx context.Context) error {
	return s.gallery.Probe(ctx)
}

// RunSweeper runs the fulfillment sweep loop until ctx is cancelled.
func (s *Server) RunSweeper(ctx context.Context) {
	s.sweeper.Run(ctx)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

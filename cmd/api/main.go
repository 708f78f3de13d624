package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/FindMalek/dukkani-sub000/internal/cache"
	"github.com/FindMalek/dukkani-sub000/internal/config"
	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/handler"
	"github.com/FindMalek/dukkani-sub000/internal/middleware"
	"github.com/FindMalek/dukkani-sub000/internal/notify"
	"github.com/FindMalek/dukkani-sub000/internal/repository"
	"github.com/FindMalek/dukkani-sub000/internal/service"
	"github.com/FindMalek/dukkani-sub000/internal/sse"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// main is the entrypoint of the order engine API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting dukkani order api")
	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.RunMigrations(db.DB, "file://migrations"); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize repositories
	storeRepo := repository.NewStoreRepository(db)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// 5. Notifiers: live dashboard stream, plus Kafka when brokers are configured
	hub := sse.NewHub()
	notifiers := notify.Multi{sse.NewHubNotifier(hub)}
	var kafkaNotifier *notify.KafkaNotifier
	if len(cfg.Kafka.Brokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Msg("kafka delivery failed")
			}
		})
		kafkaNotifier = notify.NewKafkaNotifier(writer)
		notifiers = append(notifiers, kafkaNotifier)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka order events enabled")
	}

	// 6. Initialize services
	orderSvc := service.NewOrderService(service.OrderServiceDeps{
		Tx:          database.NewTxRunner(db),
		Stores:      storeRepo,
		StoreLookup: cache.NewStoreCache(redisClient, storeRepo, cfg.Order.StoreCacheTTL),
		Products:    productRepo,
		Customers:   customerRepo,
		Addresses:   addressRepo,
		Orders:      orderRepo,
		Idempotency: cache.NewIdempotencyStore(redisClient, cfg.Order.IdempotencyTTL, cfg.Order.IdempotencyPendingTTL),
		Notifier:    notifiers,
	})
	catalogSvc := service.NewCatalogService(database.NewTxRunner(db), storeRepo, productRepo, variantRepo)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Order:   handler.NewOrderHandler(orderSvc),
		Catalog: handler.NewCatalogHandler(catalogSvc),
		SSE:     handler.NewSSEHandler(hub, storeRepo),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// 13. Flush pending order events
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Error().Err(err).Msg("kafka writer close failed")
		}
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Order   *handler.OrderHandler
	Catalog *handler.CatalogHandler
	SSE     *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Storefront checkout (no auth)
	public := router.Group("/v1/public")
	{
		public.POST("/stores/:store/orders", handlers.Order.CreatePublicOrder)
	}

	// SSE authenticates through the token query parameter
	router.GET("/v1/stores/:storeId/orders/stream", handlers.SSE.Stream)

	// Dashboard routes (protected with JWT)
	dashboard := router.Group("/v1")
	dashboard.Use(jwtMiddleware.Handle())
	{
		dashboard.POST("/stores/:storeId/orders", handlers.Order.CreateOrder)
		dashboard.GET("/orders/:orderId", handlers.Order.GetOrder)
		dashboard.PATCH("/orders/:orderId/status", handlers.Order.UpdateStatus)
		dashboard.DELETE("/orders/:orderId", handlers.Order.DeleteOrder)

		dashboard.POST("/products/:productId/options", handlers.Catalog.CreateOption)
		dashboard.POST("/products/:productId/variants", handlers.Catalog.CreateVariant)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"escrow-service/internal/broker"
	"escrow-service/internal/config"
	"escrow-service/internal/database"
	"escrow-service/internal/handlers"
	"escrow-service/internal/paystack"
	"escrow-service/internal/redisclient"
	"escrow-service/internal/services"
	"escrow-service/internal/store"
	"escrow-service/internal/util"
	"escrow-service/internal/worker"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	database.Connect(cfg.Database)
	database.Migrate()
	db := database.DB

	// Stores
	transactionStore := store.NewTransactionStore(db)
	cartStore := store.NewCartStore(db)
	profileStore := store.NewProfileStore(db)
	webhookLogStore := store.NewWebhookLogStore(db)

	// Payment Gateway
	gateway := paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseUrl)

	// Domain events (optional; the service runs without a broker)
	var publisher services.EventPublisher
	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()
	publisher = broker.NewEventPublisher(producer)

	// Webhook dedup cache (optional)
	var dedup handlers.DedupCache
	if redisClient, err := redisclient.NewClient(cfg.Redis.Addr); err != nil {
		logger.Warn("redis unavailable, webhook dedup disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		dedup = redisClient
	}

	// Services
	escrowService := services.NewEscrowService(transactionStore, cartStore, profileStore, webhookLogStore, gateway, publisher, cfg.Escrow.FeeRate)
	checkoutService := services.NewCheckoutService(transactionStore, cartStore, gateway)
	recipientService := services.NewRecipientService(profileStore, gateway)

	// Background release queue
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr})
	defer asynqClient.Close()
	enqueuer := worker.NewReleaseEnqueuer(asynqClient)

	reconcileService := services.NewReconcileService(
		transactionStore,
		gateway,
		enqueuer,
		time.Duration(cfg.Reconcile.VerifyAfterMinutes)*time.Minute,
		time.Duration(cfg.Reconcile.AbandonAfterHours)*time.Hour,
	)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(escrowService, cfg.Paystack.SecretKey, dedup)
	transactionHandler := handlers.NewTransactionHandler(escrowService, transactionStore)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	payoutHandler := handlers.NewPayoutHandler(escrowService, recipientService)

	// Initialize Gin
	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(handlers.Metrics())
	r.Use(handlers.CORS())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Welcome to the campus marketplace escrow service"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhooks/paystack", webhookHandler.HandlePaystack)

	r.POST("/transactions/confirm-buyer", transactionHandler.ConfirmBuyer)
	r.POST("/transactions/confirm-seller", transactionHandler.ConfirmSeller)
	r.GET("/transactions", transactionHandler.List)
	r.GET("/transactions/:id", transactionHandler.Get)

	r.POST("/checkout", checkoutHandler.Single)
	r.POST("/checkout/cart", checkoutHandler.Cart)

	r.POST("/payouts/recipients", payoutHandler.RegisterRecipient)
	r.POST("/payouts/release", payoutHandler.Release)

	admin := r.Group("/admin")
	admin.POST("/transactions/:id/cancel", transactionHandler.Cancel)
	admin.POST("/transactions/:id/refund", transactionHandler.Refund)

	// Start Cron Schedulers
	reconcileService.StartScheduler()

	logger.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

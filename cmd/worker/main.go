package main

import (
	"log"

	"github.com/hibiken/asynq"

	"escrow-service/internal/broker"
	"escrow-service/internal/config"
	"escrow-service/internal/database"
	"escrow-service/internal/paystack"
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

	database.Connect(cfg.Database)
	db := database.DB

	transactionStore := store.NewTransactionStore(db)
	cartStore := store.NewCartStore(db)
	profileStore := store.NewProfileStore(db)
	webhookLogStore := store.NewWebhookLogStore(db)

	gateway := paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseUrl)

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()
	publisher := broker.NewEventPublisher(producer)

	escrowService := services.NewEscrowService(transactionStore, cartStore, profileStore, webhookLogStore, gateway, publisher, cfg.Escrow.FeeRate)

	logger.Info("fund release worker starting")
	worker.StartWorker(asynq.RedisClientOpt{Addr: cfg.Redis.Addr}, escrowService)
}

package main

import (
	"log"

	"escrow-service/internal/config"
	"escrow-service/internal/database"
)

func main() {
	cfg := config.Load()

	database.Connect(cfg.Database)
	database.Migrate()

	log.Println("Migration completed successfully")
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/rawblock/coinshuffle-core/internal/api"
	"github.com/rawblock/coinshuffle-core/internal/coordinator"
	"github.com/rawblock/coinshuffle-core/internal/coordinatordb"
)

func main() {
	log.Println("Starting coinshuffle-core coordinator...")

	var storage coordinator.Storage
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		store, err := coordinatordb.Connect(context.Background(), dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, falling back to in-memory storage: %v", err)
			storage = coordinator.NewMemoryStorage()
		} else {
			defer store.Close()
			if err := store.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
			storage = store
		}
	} else {
		log.Println("DATABASE_URL not set, running with in-memory storage")
		storage = coordinator.NewMemoryStorage()
	}

	coord := coordinator.New(storage)
	if getEnvOrDefault("COORDINATOR_VERIFY_SIGNATURES", "true") == "false" {
		coord.VerifySignatures = false
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(coord, wsHub)

	port := getEnvOrDefault("PORT", "7713")
	log.Printf("coordinator listening on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/app"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
)

func main() {
	// .env is optional; deployed environments set variables directly
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatalf("app: %v", err)
	}
}

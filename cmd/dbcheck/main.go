package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/app"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/auth"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/database"
)

// Verifies the configured database and Redis before a deploy: connects,
// migrates, seeds access policies and reports table counts.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := app.NewLogger(cfg.LogLevel, "text")

	fmt.Printf("Connecting to %s database\n", cfg.DBDriver)
	db, err := database.Open(cfg.DBDriver, cfg.DSN, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	fmt.Println("✓ database connection successful")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run auto-migration: %v", err)
	}
	fmt.Println("✓ migrations applied")

	cs, err := auth.NewCasbinService(db, cfg.CasbinModelPath)
	if err != nil {
		log.Fatalf("failed to load casbin: %v", err)
	}
	if err := cs.Seed(cfg.AccessPolicies); err != nil {
		log.Fatalf("failed to seed access policies: %v", err)
	}

	for _, table := range []string{"users", "otps", "profiles", "casbin_rule"} {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			log.Fatalf("failed to query %s table: %v", table, err)
		}
		fmt.Printf("✓ %s table accessible (rows: %d)\n", table, count)
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		log.Fatalf("failed to ping redis at %s: %v", cfg.RedisAddr, err)
	}
	fmt.Println("✓ redis connection successful")
}

package main

import (
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"corredorflow/config"
	"corredorflow/database"
	"corredorflow/routes"
	"corredorflow/utils"
)

func main() {
	// All logs in Panama time
	panamaLocation, err := time.LoadLocation("America/Panama")
	if err != nil {
		panamaLocation = time.FixedZone("EST", -5*60*60)
	}
	time.Local = panamaLocation

	cfg := config.LoadConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	utils.SetDB(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	log.Println("Migration complete")

	database.SeedProviders(db)
	log.Println("Provider catalog seeded")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	if err := rdb.Ping(utils.RedisCtx()).Err(); err != nil {
		log.Printf("Redis unavailable (%v), token caching and rate limits degraded", err)
	}
	utils.SetRedis(rdb)

	if err := utils.InitLogger(); err != nil {
		log.Printf("file logger unavailable: %v", err)
	}

	r := routes.SetupRouter(cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

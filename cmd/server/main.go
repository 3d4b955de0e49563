package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"cmfbsub/internal/api"
	"cmfbsub/internal/config"
	"cmfbsub/internal/database"
	"cmfbsub/internal/services"
	"cmfbsub/pkg/logging"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	store := database.NewStore(db)
	fb := services.NewFacebookService(cfg)
	cs := services.NewCreateSendService()

	r := api.NewRouter(cfg, store, fb, cs)

	logging.Infof("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

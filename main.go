package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"kbchat/config"
	"kbchat/controllers"
	"kbchat/routes"
	"kbchat/services"
	"kbchat/telemetry"
)

func main() {
	logger, err := telemetry.InitLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer cleanup()

	awsCfg, err := services.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		log.Fatalf("failed to load AWS configuration: %v", err)
	}

	var store *services.TranscriptStore
	if cfg.TranscriptTable != "" {
		store = services.NewTranscriptStore(awsCfg, cfg.AWSEndpoint, cfg.TranscriptTable)
		if err := store.EnsureTable(ctx); err != nil {
			log.Fatalf("failed to prepare transcript table: %v", err)
		}
		logger.Info("transcript store enabled", "table", cfg.TranscriptTable)
	}

	var answerer services.Answerer
	switch cfg.Backend {
	case config.BackendOpenAI:
		answerer = services.NewOpenAIAnswerer(cfg.OpenAIKey, cfg.OpenAIModel, store, logger)
	default:
		answerer = services.NewBedrockAnswerer(awsCfg, cfg, logger)
	}
	logger.Info("answerer configured", "backend", cfg.Backend)

	if os.Getenv("DEBUG") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	kb := controllers.NewKBController(answerer, store, logger, tracer, meter)
	cc := controllers.NewConfigController(cfg.PublicURL)
	router := routes.SetupRouter(kb, cc, logger)

	addr := ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

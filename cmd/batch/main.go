package main

import (
	"context"
	"log"
	"time"

	"kbchat/config"
	"kbchat/services"
	"kbchat/telemetry"
)

// settlePeriod is how long a session must sit untouched before it is archived.
const settlePeriod = 3 * time.Hour

func main() {
	logger, err := telemetry.InitLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.TranscriptTable == "" || cfg.PostgresURI == "" {
		log.Fatal("archiver requires TRANSCRIPT_TABLE and POSTGRES_URI")
	}

	ctx := context.Background()
	awsCfg, err := services.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		log.Fatalf("failed to load AWS configuration: %v", err)
	}
	store := services.NewTranscriptStore(awsCfg, cfg.AWSEndpoint, cfg.TranscriptTable)

	var archiver *services.ArchiveService
	for i := 0; i < 3; i++ {
		archiver, err = services.NewArchiveService(cfg.PostgresURI, store, logger)
		if err == nil {
			break
		}
		log.Printf("Attempt %d: failed to create archiver: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("failed to create archiver after retries: %v", err)
	}
	defer archiver.Close()

	log.Println("Starting archive service...")

	if err := archiver.ProcessSessions(ctx, time.Now().Add(-settlePeriod)); err != nil {
		log.Printf("Error in initial archive pass: %v", err)
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("Starting scheduled archive pass...")
		if err := archiver.ProcessSessions(ctx, time.Now().Add(-settlePeriod)); err != nil {
			log.Printf("Error archiving sessions: %v", err)
		}
		log.Println("Archive pass completed")
	}
}

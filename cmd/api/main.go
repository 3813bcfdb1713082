package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/voxcraft/voxcraft-golang/internal/config"
	"github.com/voxcraft/voxcraft-golang/internal/credits"
	"github.com/voxcraft/voxcraft-golang/internal/database"
	"github.com/voxcraft/voxcraft-golang/internal/generation"
	"github.com/voxcraft/voxcraft-golang/internal/handlers"
	"github.com/voxcraft/voxcraft-golang/internal/history"
	"github.com/voxcraft/voxcraft-golang/internal/inference"
	"github.com/voxcraft/voxcraft-golang/internal/routes"
	"github.com/voxcraft/voxcraft-golang/internal/storage"
)

func main() {
	// --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("CRITICAL ERROR: %v", err)
	}

	// --- Database Connection ---
	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// --- Presigned URL Issuer (S3) ---
	presigner, err := storage.NewPresigner(context.Background(), storage.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Bucket:          cfg.S3Bucket,
	})
	if err != nil {
		log.Fatalf("Failed to initialize S3 presigner: %v", err)
	}

	// --- Inference Backends ---
	backend := inference.NewClient(inference.Config{
		StyleTTS2URL:   cfg.StyleTTS2URL,
		SeedVCURL:      cfg.SeedVCURL,
		MakeAnAudioURL: cfg.MakeAnAudioURL,
		WhisperURL:     cfg.WhisperURL,
		APIKey:         cfg.BackendAPIKey,
	})

	// --- Core Services ---
	ledger := credits.NewLedger(db)
	recorder := history.NewRecorder(db, presigner)
	generator := generation.NewService(ledger, backend, recorder)

	// We inject ALL dependencies into the Handlers struct.
	app := &handlers.Handlers{
		DB:        db,
		Ledger:    ledger,
		Generator: generator,
		History:   recorder,
	}

	// --- Background Worker ---
	// Retries queued credit refunds (compensations whose immediate
	// increment failed) so a backend outage never eats user credits.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		log.Println("Background Worker Started: retrying pending credit refunds...")

		for range ticker.C {
			applied, err := ledger.ProcessPendingRefunds(context.Background())
			if err != nil {
				log.Printf("Refund worker error: %v", err)
				continue
			}
			if applied > 0 {
				log.Printf("Refund worker applied %d queued refunds", applied)
			}
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	log.Printf("Starting VoxCraft API server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/paperbase-ai/paperbase/internal/api/handlers"
	"github.com/paperbase-ai/paperbase/internal/config"
	"github.com/paperbase-ai/paperbase/internal/database"
	"github.com/paperbase-ai/paperbase/internal/extract"
	"github.com/paperbase-ai/paperbase/internal/jobs"
	"github.com/paperbase-ai/paperbase/internal/model"
	"github.com/paperbase-ai/paperbase/internal/openai"
	"github.com/paperbase-ai/paperbase/internal/repository"
	"github.com/paperbase-ai/paperbase/internal/server"
	"github.com/paperbase-ai/paperbase/internal/service"
	"github.com/paperbase-ai/paperbase/internal/storage"
	"github.com/paperbase-ai/paperbase/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the paperbase API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("PAPERBASE_OPENAI_API_KEY is required")
	}
	if !cfg.HasOCR() {
		return fmt.Errorf("PAPERBASE_OCR_ENDPOINT is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	registry := model.NewRegistry(openaiClient, openaiClient, model.DefaultEntries())

	ocrClient := extract.NewHTTPOCRClient(extract.HTTPOCRConfig{
		Endpoint: cfg.OCREndpoint,
		APIKey:   cfg.OCRAPIKey,
		Model:    cfg.OCRModel,
	})
	extractor := extract.NewExtractor(ocrClient)

	usageSvc := service.NewUsageService(usageRepo)

	ingestSvc := service.NewIngestService(extractor, registry, txRunner, docRepo, usageSvc, service.IngestConfig{
		ChunkConfig: service.ChunkConfig{
			MaxChars: cfg.ChunkMaxChars,
			Overlap:  cfg.ChunkOverlap,
		},
		EmbeddingModel: cfg.EmbeddingModel,
		OCRModel:       cfg.OCRModel,
		DocumentTTL:    cfg.DocumentTTL,
	})

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		ingestSvc.WithArchiver(s3Client)
	}

	retrievalSvc := service.NewRetrievalService(docRepo, chunkRepo, registry)

	generationSvc := service.NewGenerationService(retrievalSvc, registry, usageSvc, service.GenerationConfig{
		TopK:        cfg.RetrievalTopK,
		MinScore:    float32(cfg.RetrievalMinScore),
		BulkWorkers: cfg.BulkWorkers,
	})

	var sweeper *jobs.Worker
	if cfg.DocumentTTL > 0 {
		sweeper = jobs.NewWorker(jobs.NewRetentionSweeper(docRepo), cfg.SweepInterval)
		go sweeper.Start(ctx)
		log.Printf("retention sweeper started (ttl: %v, interval: %v)", cfg.DocumentTTL, cfg.SweepInterval)
	}

	documentHandler := handlers.NewDocumentHandler(ingestSvc)
	askHandler := handlers.NewAskHandler(generationSvc, cfg.ChatModel)
	generateHandler := handlers.NewGenerateHandler(generationSvc, ingestSvc, cfg.ChatModel)
	usageHandler := handlers.NewUsageHandler(usageSvc)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: documentHandler,
		AskHandler:      askHandler,
		GenerateHandler: generateHandler,
		UsageHandler:    usageHandler,
		MaxBodyBytes:    cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/client"
	"github.com/Corner-Boxing/corner-backend/internal/config"
	"github.com/Corner-Boxing/corner-backend/internal/handler"
	"github.com/Corner-Boxing/corner-backend/internal/middleware"
	"github.com/Corner-Boxing/corner-backend/internal/planner"
	"github.com/Corner-Boxing/corner-backend/internal/service"
	"github.com/Corner-Boxing/corner-backend/internal/store"
	"github.com/Corner-Boxing/corner-backend/internal/timeline"
	ws "github.com/Corner-Boxing/corner-backend/internal/websocket"
	"github.com/Corner-Boxing/corner-backend/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis client (optional - rate limiting, asynq and the redis job store)
	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.Store.Driver == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
	}

	// Job store
	jobStore, err := store.Open(cfg.Store, redisClient)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer jobStore.Close()
	log.Printf("Job store: %s", cfg.Store.Driver)

	// Asset library
	manifest, err := assets.LoadManifest(cfg.Assets.Manifest)
	if err != nil {
		log.Fatalf("Failed to load asset manifest: %v", err)
	}
	repo, err := openAssets(cfg)
	if err != nil {
		log.Fatalf("Failed to open asset library: %v", err)
	}

	// Object storage (local fallback when S3 is not configured)
	storage, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize Asynq client (optional)
	var asynqClient *asynq.Client
	if cfg.Redis.Enabled {
		asynqClient = asynq.NewClient(redisOpt(cfg))
		defer asynqClient.Close()
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	codec := audio.NewCodec(cfg.Audio.FFmpegPath, cfg.Audio.Format, cfg.Audio.Bitrate)
	resolver := assets.NewResolver(repo, manifest, nil)
	assembler := timeline.NewAssembler(resolver, timeline.NewDecodingLoader(repo, codec))
	generator := planner.New(manifest, nil)

	classService := service.NewClassService(jobStore, generator, asynqClient)
	exportService := service.NewExportService(storage, codec, cfg.Storage.ObjectPrefix, cfg.Storage.PresignTTL)
	processor := worker.NewProcessor(jobStore, assembler, exportService, hub, cfg.Worker.PollInterval)

	// Initialize handlers
	classHandler := handler.NewClassHandler(classService, validate, cfg.Plan)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.Store.RedisPrefix)
	if !authMiddleware.Enabled() {
		log.Println("Info: JWT secret not configured, API is unauthenticated")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if cfg.Server.LogLevel == "debug" {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Corner Backend Running",
			"timestamp": time.Now().Unix(),
		})
	})
	healthHandler := handler.NewHealthHandler(resolver, manifest.Intro, fiber.Map{
		"store":         cfg.Store.Driver,
		"assets_driver": cfg.Assets.Driver,
		"storage":       cfg.Storage.Driver,
		"redis":         redisClient != nil,
		"worker":        cfg.Worker.Enabled,
		"auth":          authMiddleware.Enabled(),
	})
	app.Get("/health", healthHandler.Health)

	// Locally stored renders
	if cfg.Storage.Driver != "s3" {
		app.Static("/files", cfg.Storage.LocalDir)
	}

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())
	api.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), classHandler.Generate)
	api.Get("/jobs/:jobId", classHandler.Status)
	api.Get("/debug-generate", classHandler.DebugGenerate)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Start workers
	if cfg.Worker.Enabled {
		go processor.Run(ctx)
		if cfg.Redis.Enabled {
			go startWorkerServer(ctx, cfg, processor)
		}
	} else {
		log.Println("Info: worker disabled, jobs stay queued until another instance claims them")
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func openAssets(cfg *config.Config) (assets.Repository, error) {
	switch cfg.Assets.Driver {
	case "", "dir":
		if _, err := os.Stat(cfg.Assets.Dir); err != nil {
			log.Printf("Warning: asset directory %s: %v", cfg.Assets.Dir, err)
		}
		return assets.NewDirRepository(cfg.Assets.Dir), nil
	case "s3":
		s3cfg := cfg.Storage
		s3cfg.Bucket = cfg.Assets.Bucket
		s3Client, err := client.NewS3Client(&s3cfg)
		if err != nil {
			return nil, err
		}
		return assets.NewS3Repository(s3Client.API(), cfg.Assets.Bucket, cfg.Assets.Prefix), nil
	}
	return nil, fmt.Errorf("unknown assets driver %q", cfg.Assets.Driver)
}

func openStorage(cfg *config.Config) (client.StorageClient, error) {
	if cfg.Storage.Driver == "s3" {
		return client.NewS3Client(&cfg.Storage)
	}

	baseURL := cfg.Storage.PublicURL
	if baseURL == "" {
		if cfg.Server.ApiDomain != "" {
			baseURL = "https://" + cfg.Server.ApiDomain + "/files"
		} else {
			baseURL = "http://localhost:" + cfg.Server.Port + "/files"
		}
	}
	return client.NewLocalStorage(cfg.Storage.LocalDir, baseURL)
}

func startWorkerServer(ctx context.Context, cfg *config.Config, processor *worker.Processor) {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				service.QueueClass: 1,
			},
			LogLevel: asynqLogLevel(cfg.Server.LogLevel),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeClassRender, processor.ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
		return
	}
	<-ctx.Done()
	srv.Shutdown()
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch level {
	case "debug":
		return asynq.DebugLevel
	case "warn":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

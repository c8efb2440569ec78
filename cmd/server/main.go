package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron"

	config "github.com/maheshrc27/postsphere/configs"
	"github.com/maheshrc27/postsphere/internal/api/handlers"
	"github.com/maheshrc27/postsphere/internal/api/middleware"
	"github.com/maheshrc27/postsphere/internal/events"
	job "github.com/maheshrc27/postsphere/internal/jobs"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/queue"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/internal/tokenstore"
)

const publishMaxRetry = 5

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	ctx := context.Background()
	db, err := repository.Open(ctx, cfg.PostgresURI)
	if err != nil {
		fatal("database is unreachable", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		fatal("failed to apply schema", err)
	}

	cipher, err := tokenstore.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		fatal("invalid encryption key", err)
	}

	var publisher events.Publisher = events.Noop{}
	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name("postsphere"), nats.MaxReconnects(-1))
		if err != nil {
			fatal("failed to connect to nats", err)
		}
		publisher = events.NewNatsPublisher(nc)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	withTx := repository.Transactor(db)
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	registry := platforms.FromConfig(cfg)
	slog.Info("platforms configured", "platforms", registry.Platforms())

	store := tokenstore.NewSQL(credentialRepo, cipher)
	refresher := tokenstore.NewRefresher(store, registry, cfg.RefreshWindow)
	enqueuer := queue.NewAsynqEnqueuer(client, publishMaxRetry)

	r2Client, err := service.NewR2Client(ctx, cfg.R2)
	if err != nil {
		fatal("failed to configure object storage", err)
	}

	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	orgService := service.NewOrganizationService(withTx, orgRepo, userRepo)
	platformService := service.NewPlatformService(cfg.SecretKey, registry, store, socialAccountRepo, orgService)
	postService := service.NewPostService(postRepo, socialAccountRepo, historyRepo, orgService, enqueuer)
	publishService := service.NewPublishService(postRepo, socialAccountRepo, historyRepo, orgService, registry, refresher, publisher)
	mediaService := service.NewMediaService(r2Client, cfg.R2, mediaAssetRepo)

	// cron jobs
	refreshJob := job.NewTokenRefreshJob(store, refresher, socialAccountRepo, cfg.RefreshWindow, cfg.RefreshConcurrency)
	c := cron.New()
	if err := c.AddFunc("@every "+cfg.RefreshInterval.String(), refreshJob.RefreshTokens); err != nil {
		fatal("invalid refresh interval", err)
	}
	c.Start()

	// queue
	worker := queue.NewWorker(postRepo, publishService)
	mux := asynq.NewServeMux()
	worker.Register(mux)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.PublishConcurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "type", task.Type(), "error", err)
		}),
	})
	go func() {
		slog.Info("starting the asynq server", "concurrency", cfg.PublishConcurrency)
		if err := server.Run(mux); err != nil {
			fatal("could not start asynq server", err)
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    service.MaxMediaSize + 1<<20,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName, apiKeyService)
	routes := &handlers.Handlers{
		Auth:          handlers.NewAuthHandler(cfg, authService),
		User:          handlers.NewUserHandler(userService),
		ApiKeys:       handlers.NewApiKeyHandler(apiKeyService),
		Organizations: handlers.NewOrganizationHandler(orgService),
		Platforms:     handlers.NewPlatformHandler(platformService, cfg.FrontendURL),
		Posts:         handlers.NewPostHandler(postService, publishService),
		Media:         handlers.NewMediaHandler(mediaService),
	}
	routes.Register(app, authMiddleware.AuthMiddleware())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			fatal("failed to start server", err)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(app, server, c, nc, db)
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron, nc *nats.Conn, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
	server.Shutdown()
	c.Stop()
	if nc != nil {
		if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			slog.Error("failed to drain nats connection", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server shutdown complete")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

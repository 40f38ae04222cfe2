package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"spystory-server/internal/config"
	"spystory-server/internal/database"
	"spystory-server/internal/generation"
	"spystory-server/internal/handler"
	"spystory-server/internal/interfaces"
	"spystory-server/internal/logger"
	"spystory-server/internal/messaging"
	"spystory-server/internal/middleware"
	"spystory-server/internal/service"
	"spystory-server/internal/websocket"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded", zap.String("logLevel", cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgPool, err := setupPostgres(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("Connected to PostgreSQL")

	redisClient, err := setupRedis(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	// --- Repositories ---
	storyRepo := database.NewPgStoryRepository(log)
	nodeRepo := database.NewPgStoryNodeRepository(log)
	sessionRepo := database.NewPgSessionRepository(log)
	missionRepo := database.NewPgMissionRepository(log)
	characterRepo := database.NewPgCharacterRepository(log)
	relationshipRepo := database.NewPgRelationshipRepository(log)
	plotArcRepo := database.NewPgPlotArcRepository(log)
	txHelper := database.NewTransactionHelper(pgPool, log)
	guard := database.NewRedisSessionGuard(redisClient, cfg.SessionGuardTTL, log)

	// --- Generation backend ---
	var generator interfaces.Generator
	switch cfg.GenerationBackend {
	case "ollama":
		generator, err = generation.NewOllamaGenerator(cfg.OllamaHost, cfg.GenerationModel, cfg.GenerationTimeout, log)
		if err != nil {
			log.Fatal("Failed to build ollama generator", zap.Error(err))
		}
	default:
		generator = generation.NewOpenAIGenerator(cfg.GenerationAPIKey, cfg.GenerationModel, cfg.GenerationBaseURL, cfg.GenerationTimeout, log)
	}
	log.Info("Generation backend initialized",
		zap.String("backend", cfg.GenerationBackend),
		zap.String("model", cfg.GenerationModel))

	// --- Notifier and listeners ---
	notifier := service.NewStateNotifier(log)
	wsManager := websocket.NewConnectionManager(log)
	notifier.Register(wsManager)

	var mqConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err := messaging.NewRabbitMQClientUpdatePublisher(mqConn, cfg.ClientUpdatesQueueName, log)
		if err != nil {
			log.Fatal("Failed to create client update publisher", zap.Error(err))
		}
		notifier.Register(messaging.NewPublisherListener(publisher, log))
		log.Info("Connected to RabbitMQ", zap.String("queue", cfg.ClientUpdatesQueueName))
	} else {
		log.Info("RabbitMQ URL not set, snapshot fan-out is websocket only")
	}

	// --- Services ---
	relationshipSvc := service.NewRelationshipService(relationshipRepo, log)
	missionSvc := service.NewMissionService(missionRepo, sessionRepo, relationshipSvc, log)
	resolver := service.NewNodeResolver(nodeRepo, log)
	assembler := service.NewContextAssembler(nodeRepo, plotArcRepo, cfg.GenerationModel, log)
	gameSvc := service.NewGameService(
		pgPool,
		txHelper,
		storyRepo,
		nodeRepo,
		sessionRepo,
		missionRepo,
		characterRepo,
		resolver,
		assembler,
		service.NewHistoryBuffer(),
		missionSvc,
		relationshipSvc,
		generator,
		guard,
		notifier,
		log,
	)

	// --- HTTP server ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLogging(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	gameHandler := handler.NewGameHandler(gameSvc, wsManager, cfg.JWTSecret, log)
	gameHandler.RegisterRoutes(router)

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("Starting HTTP server", zap.String("port", cfg.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var pool *pgxpool.Pool
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err = pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err != nil {
			lastErr = err
			log.Warn("Postgres pool creation failed, retrying...",
				zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(retryDelay)
			continue
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()
		if err == nil {
			return pool, nil
		}

		pool.Close()
		lastErr = err
		log.Warn("Postgres ping failed, retrying...",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// setupRedis initializes the Redis client with retry logic.
func setupRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		client := redis.NewClient(opts)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()
		if err == nil {
			return client, nil
		}

		client.Close()
		lastErr = err
		log.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

// connectRabbitMQ dials the broker with retries and logs unexpected closes.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 50
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		conn, err = amqp.Dial(url)
		if err == nil {
			go func() {
				notifyClose := make(chan *amqp.Error)
				conn.NotifyClose(notifyClose)
				if closeErr := <-notifyClose; closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chatzone/chatzone/internal/api"
	"github.com/chatzone/chatzone/internal/config"
	"github.com/chatzone/chatzone/internal/db"
	"github.com/chatzone/chatzone/internal/middleware"
	"github.com/chatzone/chatzone/internal/observ"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/chatzone/chatzone/internal/repository/postgres"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent request or deadline; Background is the
	// right root. Each HTTP request gets its own context later.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	messageRepo := postgres.NewMessageStore(pool)

	// The change feed: websocket subscribers hang off the hub, the redis
	// broker carries events between nodes. Handlers publish to redis;
	// the broker pumps the stream back into the local hub, so a message
	// inserted on any node reaches subscribers on every node.
	hub := realtime.NewHub(logger)
	broker, err := realtime.NewBroker(ctx, cfg.RedisURL, hub, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer broker.Close()
	go func() {
		if err := broker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("change-event broker stopped", zap.Error(err))
		}
	}()

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, logger)
	userHandler := api.NewUserHandler(userRepo, broker, logger)
	messageHandler := api.NewMessageHandler(messageRepo, broker, logger)
	realtimeHandler := api.NewRealtimeHandler(hub, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health check is PUBLIC; load balancers hit this to check if the
	// server is alive, and they don't carry a JWT.
	srv.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Signup and login are the endpoints that PRODUCE tokens, so they
	// stay outside the auth group.
	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	v1.GET("/users", userHandler.List)
	v1.GET("/users/me", userHandler.GetMe)
	v1.PUT("/users/me", userHandler.UpdateMe)
	v1.GET("/messages", messageHandler.List)
	v1.POST("/messages", messageHandler.Create)
	v1.GET("/realtime", realtimeHandler.Stream)

	logger.Info("starting chatzone server",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}

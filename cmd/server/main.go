// Package main runs the AusSpeedruns HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ausspeedruns/backend/config"
	"github.com/ausspeedruns/backend/internal/auth"
	"github.com/ausspeedruns/backend/internal/events"
	"github.com/ausspeedruns/backend/internal/issuance"
	"github.com/ausspeedruns/backend/internal/middleware"
	"github.com/ausspeedruns/backend/internal/runs"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/internal/store/memory"
	"github.com/ausspeedruns/backend/internal/store/postgres"
	"github.com/ausspeedruns/backend/internal/submissions"
	"github.com/ausspeedruns/backend/internal/volunteers"
	"github.com/ausspeedruns/backend/pkg/database"
	"github.com/ausspeedruns/backend/pkg/queue"
	"github.com/ausspeedruns/backend/pkg/redis"
	"github.com/ausspeedruns/backend/pkg/response"
)

func main() {
	cfg, err := config.Load()
	logger := newLogger(cfg)
	defer logger.Sync()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st := openStore(ctx, cfg, logger)
	defer st.Close()

	// Notifications are best-effort; without Redis nothing is enqueued.
	var authNotifier auth.Notifier
	var issuanceNotifier issuance.Notifier
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("notifications disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			jobQueue := queue.NewQueue(rdb.Client, logger)
			authNotifier, issuanceNotifier = jobQueue, jobQueue
		}
	}

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.MaxAge())
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set; issuance and verification calls will be rejected")
	}

	authHandler := auth.NewHandler(auth.NewService(st, sessions, cfg.APIKey, authNotifier, logger), logger)
	issuanceHandler := issuance.NewHandler(issuance.NewService(st, cfg.APIKey, issuanceNotifier, logger), st, logger)
	eventHandler := events.NewHandler(st, logger)
	runHandler := runs.NewHandler(st, logger)
	submissionHandler := submissions.NewHandler(st, logger)
	volunteerHandler := volunteers.NewHandler(st, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Session(sessions))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authHandler.Register(router)
	issuanceHandler.Register(router)
	eventHandler.Register(router)
	runHandler.Register(router)
	submissionHandler.Register(router)
	volunteerHandler.Register(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) store.Store {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(logger)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		logger.Fatal("migrate", zap.Error(err))
	}
	return postgres.New(pool, logger)
}

func newLogger(cfg *config.Config) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg != nil {
		if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			config.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	logger, _ := config.Build()
	return logger
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dcode-github/realestate_platform/backend/cache"
	"github.com/dcode-github/realestate_platform/backend/config"
	"github.com/dcode-github/realestate_platform/backend/controllers"
	"github.com/dcode-github/realestate_platform/backend/logger"
	"github.com/dcode-github/realestate_platform/backend/mailer"
	"github.com/dcode-github/realestate_platform/backend/routes"
	"github.com/dcode-github/realestate_platform/backend/storage"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func loadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}
}

func setupRouter(d *controllers.Deps) *mux.Router {
	router := mux.NewRouter()
	routes.Routes(router, d)
	return router
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		zlog.Warn("using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	client, err := config.ConnectDB(ctx, cfg, zlog)
	if err != nil {
		return nil, err
	}
	mongoStore := store.NewMongoStore(client, cfg.MongoDB)
	if err := config.EnsureIndexes(ctx, mongoStore.Database()); err != nil {
		zlog.Warn("failed to ensure indexes", zap.Error(err))
	}
	return mongoStore, nil
}

func openUploads(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.UploadBackend == config.UploadMinIO {
		return storage.NewMinIOStorage(ctx, cfg.MinIO)
	}
	return storage.NewDiskStorage(cfg.UploadDir)
}

func run() error {
	loadEnv()
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zlog.Sync()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := openStore(startCtx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("connect to the database: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			zlog.Error("error closing store", zap.Error(err))
		}
	}()

	redisClient, err := config.InitRedis(startCtx, cfg, zlog)
	if err != nil {
		zlog.Warn("listing cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	uploads, err := openUploads(startCtx, cfg)
	if err != nil {
		return fmt.Errorf("open upload storage: %w", err)
	}

	deps := &controllers.Deps{
		Store:   db,
		Cache:   cache.New(redisClient, cfg.CacheTTL, zlog),
		Mailer:  mailer.New(cfg.SMTP),
		Uploads: uploads,
		Tokens:  utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry),
		Cfg:     cfg,
		Log:     zlog,
	}
	router := setupRouter(deps)

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
	})
	handler := corsOptions.Handler(router)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server running",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", db.Mode()),
			zap.String("uploads", uploads.Name()),
			zap.Bool("cache", deps.Cache.Enabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("start server: %w", err)
	case sig := <-sigCh:
		zlog.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	zlog.Info("server gracefully stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fixitfast/backend/internal/analysis"
	"fixitfast/backend/internal/api/handler"
	"fixitfast/backend/internal/complaint"
	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/feed"
	"fixitfast/backend/internal/identity"
	"fixitfast/backend/internal/localization"
	"fixitfast/backend/internal/storage"
	"fixitfast/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg config.Config) (storage.Storage, storage.EventBus) {
	if cfg.Store == config.StoreMemory {
		log.Println("WARNING: Using in-memory store, data is lost on restart.")
		m := storage.NewMemoryStore()
		return m, m
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return s, s
}

// startNotifier attaches the Telegram channel notifier to the feed when a bot
// token and chat are configured.
func startNotifier(cfg config.Config, hub *feed.ManagerService) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		log.Println("INFO: Telegram notifier disabled.")
		return
	}

	l, err := localization.NewLocalizer(cfg.LocaleDir)
	if err != nil {
		log.Printf("ERROR: Failed to load translations from %s: %v", cfg.LocaleDir, err)
		return
	}
	for lang, keys := range l.Missing(localization.NotificationKeys...) {
		log.Printf("WARNING: Locale %s has no template for %v, falling back to %s", lang, keys, localization.DefaultLang)
	}
	n, err := telegram.NewBotNotifier(cfg.TelegramToken, cfg.TelegramChatID, l, cfg.Locale)
	if err != nil {
		log.Printf("ERROR: Failed to start Telegram notifier: %v", err)
		return
	}
	if hub.Register(n) {
		n.Run()
	}
}

func main() {
	log.Println("Starting FixItFast Backend...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage and event bus
	s, bus := setupDependencies(ctx, cfg)

	// 2. Live feed
	hub := feed.NewManagerService(bus)
	go hub.Run(ctx)
	startNotifier(cfg, hub)

	// 3. Engine services
	complaints := complaint.NewService(s, bus)
	dashboards := analysis.NewEngine(s)
	resolver := identity.NewResolver(identity.NewTokens(cfg.JWTSecret, cfg.JWTTTL), s)

	// 4. Gin routing
	r := gin.Default()
	handler.NewHandler(complaints, dashboards, resolver, hub).Register(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
	<-hub.Done()
}

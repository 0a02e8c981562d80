package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"uc_coin/internal/api"
	"uc_coin/internal/cache"
	"uc_coin/internal/config"
	"uc_coin/internal/mission"
	"uc_coin/internal/monitoring"
	"uc_coin/internal/session"
	"uc_coin/internal/tap"
	"uc_coin/internal/tgbot"
)

func main() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog := mission.DefaultCatalog(cfg.PromoCode)
	if cfg.MissionsFile != "" {
		catalog, err = mission.LoadCatalog(cfg.MissionsFile)
		if err != nil {
			log.Fatalf("Failed to load missions: %v", err)
		}
	}
	log.Printf("📋 %d missions loaded", len(catalog))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *monitoring.Metrics
	if cfg.MetricsEnabled {
		metrics = monitoring.NewMetrics()
	}

	var promoLimiter cache.Limiter = cache.NewMemoryLimiter(cfg.PromoMaxAttempts, cfg.PromoWindow)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, promo attempts limited in memory: %v", err)
		} else {
			defer rdb.Close()
			promoLimiter = cache.NewRedisLimiter(rdb, "uc", cfg.PromoMaxAttempts, cfg.PromoWindow)
		}
	}

	var members tgbot.MemberGetter
	bot, err := tgbot.NewBot(cfg.BotToken)
	if err != nil {
		log.Printf("⚠️ Telegram bot disabled: %v", err)
	} else if bot != nil {
		members = bot
	}

	engine := session.New(cfg.Session(), tap.New(cfg.Tap, nil), catalog).
		WithVerifier(tgbot.NewChecker(members, cfg.URLTimer)).
		WithPromoLimiter(promoLimiter).
		WithMetrics(metrics)

	srv := api.NewServer(engine, metrics, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		HTTPRatePerMin: cfg.HTTPRatePerMin,
		TrustProxy:     cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	log.Printf("🚀 UC Coin server started on %s", cfg.Addr())
	if metrics != nil {
		log.Printf("📊 Prometheus metrics available at /metrics")
	}

	<-ctx.Done()
	log.Println("🔄 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}

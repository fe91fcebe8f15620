// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-relay/internal/config"
	"clinic-relay/internal/domain/ports/adapter"
	"clinic-relay/internal/domain/ports/repository"
	aiAdapters "clinic-relay/internal/infra/adapters/ai"
	"clinic-relay/internal/infra/adapters/whatsapp"
	"clinic-relay/internal/infra/logging"
	"clinic-relay/internal/infra/metrics"
	red "clinic-relay/internal/infra/redis"
	"clinic-relay/internal/infra/store/jsonfile"
	pg "clinic-relay/internal/infra/store/postgres"
	"clinic-relay/internal/infra/web"
	"clinic-relay/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop collaborators allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Dataset store ----
	var store repository.DatasetStore
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Store.URL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		store, err = pg.NewStore(ctx, pool)
		if err != nil {
			log.Fatalf("postgres store: %v", err)
		}
		logger.Info().Msg("store: postgres")
	default:
		store, err = jsonfile.NewStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("file store: %v", err)
		}
		logger.Info().Str("path", cfg.Store.Path).Msg("store: json file")
	}

	// ---- Redis (optional: distributed lock + webhook throttling) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		if cfg.Store.Driver == "file" {
			// Extend the file store's critical section across processes
			// sharing the dataset path. The postgres driver locks rows
			// inside its own transactions instead.
			store = red.NewLockedStore(store, red.NewLocker(redisClient), cfg.Redis.LockTTL)
		}
		logger.Info().Msg("redis enabled")
	}

	// ---- Responder ----
	var responder adapter.Responder
	switch cfg.AI.Provider {
	case "gemini":
		responder, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.Temperature, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
	case "noop":
		responder = aiAdapters.NewNoopResponder()
	default:
		if cfg.AI.OpenAIKey == "" && cfg.Runtime.Dev {
			responder = aiAdapters.NewNoopResponder()
		} else {
			responder, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.Temperature, cfg.AI.MaxTokens)
			if err != nil {
				log.Fatalf("openai adapter: %v", err)
			}
		}
	}
	responder = aiAdapters.NewLimitedResponder(responder, cfg.AI.ConcurrentLimit)
	logger.Info().Str("provider", responder.Name()).Str("model", cfg.AI.Model).Msg("responder configured")

	// ---- Delivery ----
	var deliverer adapter.Deliverer
	if cfg.WhatsApp.Token != "" && cfg.WhatsApp.PhoneID != "" {
		deliverer, err = whatsapp.NewCloudAPISender(cfg.WhatsApp.Token, cfg.WhatsApp.PhoneID, cfg.WhatsApp.APIBase)
		if err != nil {
			log.Fatalf("whatsapp sender: %v", err)
		}
	} else {
		logger.Warn().Msg("whatsapp credentials missing; outbound delivery is a no-op")
		deliverer = whatsapp.NewNoopSender()
	}

	// ---- Use cases ----
	clinicUC := usecase.NewClinicUseCase(store, logger)
	relayUC := usecase.NewRelayUseCase(store, responder, deliverer, cfg.AI.Timeout, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.APIKey, cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(relayUC, clinicUC, auth, cfg.WhatsApp.VerifyToken, cfg.Server.CORSOrigins, logger)
	if limiter != nil {
		srv.WithRateLimiter(limiter, cfg.Redis.RateLimit, cfg.Redis.RateWin)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	shctx, shcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shcancel()
	_ = server.Shutdown(shctx)
	cancel()
}

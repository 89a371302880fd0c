package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fleetonboard/internal/app"
	"fleetonboard/internal/config"
	"fleetonboard/internal/ratelimit"
	"fleetonboard/internal/server"
	"fleetonboard/internal/util"
	"fleetonboard/pkg/auth"
	"fleetonboard/pkg/notify"
	"fleetonboard/pkg/storage"
	"fleetonboard/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	refreshTTL, err := config.ParseTTL(cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("failed to parse refresh TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	sessions, err := auth.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}
	refreshTokens := store.NewRedisRefreshTokenStore(cfg.RedisAddr, cfg.RedisPassword)

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
		objects = minioStore
	} else {
		slog.Warn("object storage not configured, document uploads disabled")
	}

	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to init change feed: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		slog.Warn("amqp not configured, using in-process change feed")
		notifier = notify.NewMemoryNotifier()
	}

	appCore, err := app.New(app.Config{
		Store:         dataStore,
		Sessions:      sessions,
		RefreshTokens: refreshTokens,
		Notifier:      notifier,
		Objects:       objects,
		RefreshTTL:    refreshTTL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	limiterRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	httpServer := server.New(server.Config{
		App:               appCore,
		Events:            notifier,
		Proxies:           proxies,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		SignupLimiter:     newLimiter(limiterRedis, "signup", cfg.SignupRateLimitPerMinute),
		LoginLimiter:      newLimiter(limiterRedis, "login", cfg.LoginRateLimitPerMinute),
		SubmitLimiter:     newLimiter(limiterRedis, "submit", cfg.SubmitRateLimitPerMinute),
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("fleetonboard server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

func newLimiter(client *redis.Client, scope string, perMinute int) *ratelimit.FixedWindowLimiter {
	if perMinute <= 0 {
		return nil
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(client, scope, perMinute, time.Minute)
	if err != nil {
		log.Fatalf("failed to init %s rate limiter: %v", scope, err)
	}
	return limiter
}
